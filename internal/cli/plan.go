package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"coursehub-backend/internal/models"
	"coursehub-backend/internal/services"
)

// planOp is the printable form of one reconciliation step.
type planOp struct {
	Op    string `json:"op"`
	ID    string `json:"id,omitempty"`
	Order int    `json:"order,omitempty"`
	Title string `json:"title,omitempty"`
}

type planOutput struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
	Ops    []planOp          `json:"ops,omitempty"`
}

// NewPlanCommand previews the operations a bulk lesson request would run,
// without touching any store.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <request-file>",
		Short: "Preview a bulk lesson update",
		Long: `Read a bulk lesson request (YAML or JSON, "-" for stdin) and print the
delete, update and insert operations it would apply, in execution order.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runPlan(rootOpts, in, cmd.OutOrStdout())
		},
	}
	return cmd
}

// errInvalidPlan is returned after the validation errors have been printed.
var errInvalidPlan = errors.New("request is invalid")

func runPlan(opts *RootOptions, in io.Reader, out io.Writer) error {
	req, err := readBulkRequest(in)
	if err != nil {
		return err
	}

	result := planOutput{Valid: true}
	plan, err := services.ComputePlan(req.Lessons, req.DeletedLessons)
	if err != nil {
		var verr *services.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		result = planOutput{Valid: false, Errors: verr.Fields}
	} else {
		result.Ops = describePlan(plan)
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		writePlanText(out, result)
	}

	if !result.Valid {
		return errInvalidPlan
	}
	return nil
}

// readBulkRequest accepts YAML or JSON. YAML is decoded generically and then
// re-read through the JSON tags so both formats share one schema.
func readBulkRequest(in io.Reader) (*models.BulkLessonRequest, error) {
	raw, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}

	var req models.BulkLessonRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	return &req, nil
}

func describePlan(plan *services.ReconciliationPlan) []planOp {
	ops := make([]planOp, 0, len(plan.Deletes)+len(plan.Upserts))
	for _, d := range plan.Deletes {
		ops = append(ops, planOp{Op: string(services.OpDelete), ID: d.ID.String()})
	}
	for _, u := range plan.Upserts {
		op := planOp{Op: string(u.Kind), Order: u.Order, Title: u.Fields.Title}
		if u.Kind == services.OpUpdate {
			op.ID = u.ID.String()
		}
		ops = append(ops, op)
	}
	return ops
}

func writePlanText(out io.Writer, result planOutput) {
	if !result.Valid {
		keys := make([]string, 0, len(result.Errors))
		for k := range result.Errors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(out, "invalid request:")
		for _, k := range keys {
			fmt.Fprintf(out, "  %s: %s\n", k, result.Errors[k])
		}
		return
	}

	if len(result.Ops) == 0 {
		fmt.Fprintln(out, "nothing to do")
		return
	}
	for _, op := range result.Ops {
		switch op.Op {
		case string(services.OpDelete):
			fmt.Fprintf(out, "delete %s\n", op.ID)
		case string(services.OpUpdate):
			fmt.Fprintf(out, "update %s order=%d title=%q\n", op.ID, op.Order, op.Title)
		default:
			fmt.Fprintf(out, "insert order=%d title=%q\n", op.Order, op.Title)
		}
	}
}
