package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"reflow_oven/internal/config"
	"reflow_oven/internal/controller"
	"reflow_oven/internal/profile"

	"github.com/spf13/cobra"
)

func newProfileCmd(configPath *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Validate a reflow profile and print its stages",
		Long: "Loads the profile named by --file, or by profile.path in the config, " +
			"validates it and prints its points and stage boundaries.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if path == "" {
				v, err := config.Load(*configPath)
				if err != nil {
					return err
				}
				s, err := config.LoadSettings(v)
				if err != nil {
					return err
				}
				path = s.Profile.Path
			}
			f, p, err := loadProfile(path)
			if err != nil {
				return err
			}
			return printProfile(cmd.OutOrStdout(), f, p)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "profile file; overrides profile.path")
	return cmd
}

// loadProfile reads and validates the profile at path.
func loadProfile(path string) (*profile.File, *controller.Profile, error) {
	f, err := profile.Load(path)
	if err != nil {
		return nil, nil, err
	}
	p, err := controller.LoadProfile(f)
	if err != nil {
		return nil, nil, fmt.Errorf("profile %q: %w", path, err)
	}
	return f, p, nil
}

func printProfile(w io.Writer, f *profile.File, p *controller.Profile) error {
	name := f.Name
	if name == "" {
		name = "(unnamed)"
	}
	if f.Alloy != "" {
		name += " [" + f.Alloy + "]"
	}
	chart := p.Chart()
	fmt.Fprintf(w, "profile:  %s\n", name)
	fmt.Fprintf(w, "duration: %s (%d samples)\n", controller.FormatElapsed(p.DurationSeconds()), p.DurationSeconds())
	fmt.Fprintf(w, "chart:    %.0f..%.0f °C\n\n", chart.Low, chart.High)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tSTARTS\tTEMP °C")
	st := p.Stages()
	for _, row := range []struct {
		name string
		b    controller.Boundary
	}{
		{"preheat", st.Preheat},
		{"soak", st.Soak},
		{"reflow", st.Reflow},
		{"cool", st.Cool},
	} {
		fmt.Fprintf(tw, "%s\t%s\t%.1f\n", row.name, controller.FormatElapsed(row.b.TimeSeconds), row.b.Temperature)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSECONDS\tTEMP °C")
	for _, pt := range p.Points() {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\n", controller.FormatElapsed(pt.TimeSeconds), pt.TimeSeconds, pt.Temperature)
	}
	return tw.Flush()
}
