package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"valuator/internal/attachment"
	"valuator/internal/model"
	"valuator/internal/service"
	"valuator/internal/utils"
)

type valuationOptions struct {
	fields    []string
	lat       float64
	lng       float64
	hasCoord  bool
	locate    bool
	suggest   bool
	amenities []string
	images    []string
	cameras   []string
}

func domainCommands() []*cobra.Command {
	var cmds []*cobra.Command
	for _, d := range model.Domains() {
		cmds = append(cmds, newDomainCmd(d))
	}
	return cmds
}

func newDomainCmd(d *model.Domain) *cobra.Command {
	opts := &valuationOptions{}
	cmd := &cobra.Command{
		Use:   string(d.ID),
		Short: d.Title,
		Long:  d.Title + "\n\nFields:\n" + describeFields(d),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.hasCoord = cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng")
			return runValuation(cmd.Context(), cmd.OutOrStdout(), d, opts, deps)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.fields, "field", "f", nil, "form value as name=value (repeatable)")
	cmd.Flags().Float64Var(&opts.lat, "lat", 0, "latitude of the property")
	cmd.Flags().Float64Var(&opts.lng, "lng", 0, "longitude of the property")
	cmd.Flags().BoolVar(&opts.locate, "locate", false, "use the device location (needs GOOGLE_MAPS_API_KEY)")
	cmd.Flags().BoolVar(&opts.suggest, "suggest-address", false, "fill blank city/locality from the coordinate")
	cmd.Flags().StringArrayVarP(&opts.images, "image", "i", nil, "attach a gallery photo (repeatable)")
	cmd.Flags().StringArrayVar(&opts.cameras, "camera", nil, "attach a camera photo (repeatable)")
	if d.HasAmenities() {
		cmd.Flags().StringArrayVarP(&opts.amenities, "amenity", "a", nil, "select an amenity by id or name (repeatable)")
	}
	return cmd
}

func describeFields(d *model.Domain) string {
	var b strings.Builder
	for _, f := range d.Fields {
		fmt.Fprintf(&b, "  %-14s %s", f.Name, f.Label)
		if f.Required {
			b.WriteString(" (required)")
		}
		if len(f.Options) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(f.Options, ", "))
		}
		b.WriteString("\n")
	}
	if d.HasAmenities() {
		ids := make([]string, 0, len(d.Amenities))
		for _, a := range d.Amenities {
			ids = append(ids, a.ID)
		}
		fmt.Fprintf(&b, "\nAmenities: %s\n", strings.Join(ids, ", "))
	}
	return b.String()
}

// parseAssignments turns repeated name=value flags into a map. The value may
// itself contain '='.
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --field %q, want name=value", pair)
		}
		out[name] = value
	}
	return out, nil
}

// runValuation mounts one form session, applies the options in the order a
// user would and submits once
func runValuation(ctx context.Context, out io.Writer, d *model.Domain, opts *valuationOptions, deps service.SessionDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}

	values, err := parseAssignments(opts.fields)
	if err != nil {
		return err
	}

	session := service.NewSession("cli", d, deps)
	defer session.Close()

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := session.SetField(name, values[name]); err != nil {
			return fmt.Errorf("--field %s: %w", name, err)
		}
	}

	for _, term := range opts.amenities {
		id, ok := utils.ResolveAmenity(d, term)
		if !ok {
			return fmt.Errorf("--amenity %q: %w", term, service.ErrUnknownAmenity)
		}
		if session.Snapshot().Amenities[id] {
			continue
		}
		if _, err := session.ToggleAmenity(id); err != nil {
			return err
		}
	}

	if opts.hasCoord {
		if err := session.OnMapClick(opts.lat, opts.lng); err != nil {
			return err
		}
	}
	if opts.locate {
		c, err := session.UseDeviceLocation(ctx, nil)
		if err != nil {
			return errors.New(service.UserMessage(err))
		}
		fmt.Fprintf(out, "Location: %.5f, %.5f\n", c.Latitude, c.Longitude)
	}
	if opts.suggest {
		addr, err := session.SuggestAddress(ctx, true)
		if err != nil {
			fmt.Fprintf(out, "Address suggestion unavailable: %s\n", service.UserMessage(err))
		} else if addr.Formatted != "" {
			fmt.Fprintf(out, "Address: %s\n", addr.Formatted)
		}
	}

	if len(opts.images) > 0 {
		files := make([]attachment.File, 0, len(opts.images))
		for _, p := range opts.images {
			files = append(files, attachment.FromPath(p))
		}
		if _, err := session.AddFromGallery(ctx, files); err != nil {
			skipped := len(multierr.Errors(err))
			fmt.Fprintf(out, "Warning: %s\n", deps.Messages.Text("attachment.skipped", map[string]interface{}{"Count": skipped}))
		}
	}
	for _, p := range opts.cameras {
		if _, err := session.AddFromCamera(ctx, attachment.FromPath(p)); err != nil {
			fmt.Fprintf(out, "Warning: %s\n", service.UserMessage(err))
		}
	}

	if err := session.Submit(ctx); err != nil {
		if msg := session.Snapshot().Error; msg != "" {
			return errors.New(msg)
		}
		return err
	}

	printResult(out, d, session.Snapshot())
	return nil
}

func printResult(out io.Writer, d *model.Domain, snap service.Snapshot) {
	r := snap.Result
	if r == nil {
		return
	}
	fmt.Fprintf(out, "%s\n", d.Title)
	fmt.Fprintf(out, "  Estimate:   %s\n", utils.FormatINR(r.PredictedValue))
	fmt.Fprintf(out, "  Range:      %s - %s\n", utils.FormatINR(r.MinValue), utils.FormatINR(r.MaxValue))
	fmt.Fprintf(out, "  Confidence: %s\n", utils.FormatPercent(r.Confidence))
	if r.PricePerUnit != nil {
		fmt.Fprintf(out, "  Per unit:   %s\n", utils.FormatINR(r.PricePerUnit))
	}
	if len(snap.Images) > 0 {
		fmt.Fprintf(out, "  Photos:     %d attached\n", len(snap.Images))
	}
	if r.Insights != "" {
		fmt.Fprintf(out, "\n%s\n", r.Insights)
	}
}
