package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dofliu/InduSpect/internal/app"
	"github.com/dofliu/InduSpect/internal/measure"
	"github.com/dofliu/InduSpect/internal/session"
	"github.com/spf13/cobra"
)

var editFlags struct {
	equipmentType string
	condition     string
	summary       string
	anomaly       bool
	readings      []string
	object        string
	dimValue      float64
	dimUnit       string
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Correct the analysis result of an item",
	Long: `Changes fields of an analysed item's result. Only the flags given are
changed.

Examples:
  induspect edit <id> --condition "Seal leaking" --anomaly
  induspect edit <id> --reading "0:Pressure=4.2 bar" --reading "1:=80"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		edit, err := buildEdit(cmd)
		if err != nil {
			return err
		}
		return withWorkflow(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Workflow.EditResult(args[0], edit); err != nil {
				return err
			}
			showSession(ctx, a)
			return nil
		})
	},
}

func buildEdit(cmd *cobra.Command) (session.ResultEdit, error) {
	var edit session.ResultEdit
	f := cmd.Flags()
	if f.Changed("equipment-type") {
		edit.EquipmentType = &editFlags.equipmentType
	}
	if f.Changed("condition") {
		edit.ConditionAssessment = &editFlags.condition
	}
	if f.Changed("summary") {
		edit.Summary = &editFlags.summary
	}
	if f.Changed("anomaly") {
		edit.IsAnomaly = &editFlags.anomaly
	}
	for _, r := range editFlags.readings {
		re, err := parseReading(r)
		if err != nil {
			return session.ResultEdit{}, err
		}
		edit.Readings = append(edit.Readings, re)
	}

	var dim session.DimensionEdit
	if f.Changed("object") {
		dim.ObjectName = &editFlags.object
	}
	if f.Changed("dimension") {
		dim.Value = &editFlags.dimValue
	}
	if f.Changed("dimension-unit") {
		dim.Unit = &editFlags.dimUnit
	}
	if dim != (session.DimensionEdit{}) {
		edit.Dimensions = &dim
	}
	return edit, nil
}

var measureFlags struct {
	viewport  string
	ref       string
	target    string
	refLength string
	unit      string
}

var measureCmd = &cobra.Command{
	Use:   "measure <id>",
	Short: "Measure an object in an item's photo against a reference",
	Long: `Calibrates against a reference object of known length drawn on the
photo, then measures the target line. Coordinates are given in the
displayed viewport and scaled to the photo's native size.

Example:
  induspect measure <id> --viewport 800x600 --ref 10,10,410,10 --target 50,50,50,150`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildMeasureRequest()
		if err != nil {
			return err
		}
		return withWorkflow(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Workflow.ApplyMeasurement(args[0], req)
			if err != nil {
				return err
			}
			printMeasurement(os.Stdout, res)
			return nil
		})
	},
}

func buildMeasureRequest() (measure.Request, error) {
	vp, err := parseViewport(measureFlags.viewport)
	if err != nil {
		return measure.Request{}, err
	}
	ref, err := parseLine(measureFlags.ref)
	if err != nil {
		return measure.Request{}, fmt.Errorf("--ref: %w", err)
	}
	target, err := parseLine(measureFlags.target)
	if err != nil {
		return measure.Request{}, fmt.Errorf("--target: %w", err)
	}
	return measure.Request{
		Viewport:        vp,
		Reference:       ref,
		Target:          target,
		ReferenceLength: measureFlags.refLength,
		Unit:            measureFlags.unit,
	}, nil
}

var confirmAll bool

var confirmCmd = &cobra.Command{
	Use:   "confirm <id> | --all",
	Short: "Confirm analysed items as final records",
	Args: func(cmd *cobra.Command, args []string) error {
		if confirmAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkflow(cmd, func(ctx context.Context, a *app.App) error {
			if confirmAll {
				n, err := a.Workflow.ConfirmAll()
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Confirmed %d items\n", n)
			} else if err := a.Workflow.Confirm(args[0]); err != nil {
				return err
			}
			showSession(ctx, a)
			return nil
		})
	},
}

func init() {
	f := editCmd.Flags()
	f.StringVar(&editFlags.equipmentType, "equipment-type", "", "Equipment type")
	f.StringVar(&editFlags.condition, "condition", "", "Condition assessment")
	f.StringVar(&editFlags.summary, "summary", "", "Summary")
	f.BoolVar(&editFlags.anomaly, "anomaly", false, "Flag the item as anomalous (--anomaly=false clears it)")
	f.StringArrayVar(&editFlags.readings, "reading", nil, `Reading edit "i:label=value unit"; index equal to the count appends`)
	f.StringVar(&editFlags.object, "object", "", "Name of the measured object")
	f.Float64Var(&editFlags.dimValue, "dimension", 0, "Measured dimension value")
	f.StringVar(&editFlags.dimUnit, "dimension-unit", "", "Measured dimension unit")

	m := measureCmd.Flags()
	m.StringVar(&measureFlags.viewport, "viewport", "", `Displayed photo area, "WxH" or "left,top,w,h"`)
	m.StringVar(&measureFlags.ref, "ref", "", `Reference line "x1,y1,x2,y2"`)
	m.StringVar(&measureFlags.target, "target", "", `Target line "x1,y1,x2,y2"`)
	m.StringVar(&measureFlags.refLength, "ref-length", "", "Real length of the reference (default 85.6, a bank card)")
	m.StringVar(&measureFlags.unit, "unit", "", "Unit of the reference length (default mm)")
	_ = measureCmd.MarkFlagRequired("viewport")
	_ = measureCmd.MarkFlagRequired("ref")
	_ = measureCmd.MarkFlagRequired("target")

	confirmCmd.Flags().BoolVar(&confirmAll, "all", false, "Confirm every analysed item")
}
