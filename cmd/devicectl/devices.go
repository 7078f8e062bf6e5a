package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/devicehub/internal/device"
	"github.com/nerrad567/devicehub/internal/export"
)

// deviceFlags holds the subtype fields accepted by create and update.
type deviceFlags struct {
	name     string
	enabled  bool
	os       string
	ip       string
	network  string
	battery  int
	rawToken string
}

func (f *deviceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "display name")
	cmd.Flags().BoolVar(&f.enabled, "enabled", true, "whether the device is enabled")
	cmd.Flags().StringVar(&f.os, "os", "", "operation system (PersonalComputer)")
	cmd.Flags().StringVar(&f.ip, "ip", "", "IPv4 or IPv6 address (Embedded)")
	cmd.Flags().StringVar(&f.network, "network", "", "network name (Embedded)")
	cmd.Flags().IntVar(&f.battery, "battery", 0, "battery percentage 0-100 (Smartwatch)")
}

// stringFlag returns a pointer to v when the flag was set on the command line.
func stringFlag(cmd *cobra.Command, name, v string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func newListCmd(out io.Writer, opts *globalOptions) *cobra.Command {
	var details bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List devices ordered by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := opts.client()
			if details {
				list, err := c.ListDetails(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(out, list)
			}
			list, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(out, list)
		},
	}
	cmd.Flags().BoolVarP(&details, "details", "d", false, "include type-specific fields and version tokens")
	return cmd
}

func newGetCmd(out io.Writer, opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.client().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(out, d)
		},
	}
}

func newCreateCmd(out io.Writer, opts *globalOptions) *cobra.Command {
	var (
		f    deviceFlags
		kind string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a device",
		Example: `  devicectl create --type PersonalComputer --name "Reception PC" --os Linux
  devicectl create --type Embedded --name Gateway --network plant --ip 10.0.0.5
  devicectl create --type Smartwatch --name "Watch 7" --battery 80`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enabled := f.enabled
			req := device.CreateRequest{
				Name:            f.name,
				IsEnabled:       &enabled,
				DeviceType:      kind,
				OperationSystem: stringFlag(cmd, "os", f.os),
				IPAddress:       stringFlag(cmd, "ip", f.ip),
				NetworkName:     stringFlag(cmd, "network", f.network),
			}
			if cmd.Flags().Changed("battery") {
				req.BatteryPercentage = &f.battery
			}

			d, err := opts.client().Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(out, d)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&kind, "type", "t", "", "device type: PersonalComputer, Embedded or Smartwatch")
	//nolint:errcheck // Flag is registered above
	cmd.MarkFlagRequired("type")
	return cmd
}

func newUpdateCmd(out io.Writer, opts *globalOptions) *cobra.Command {
	var f deviceFlags

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a device",
		Long: `Update replaces the mutable fields of a device.

Fields not given on the command line keep their current values. Without
--version the current version token is read first; pass --version with the
token from an earlier read to fail on concurrent changes instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			current, err := c.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			req := updateFromCurrent(current)
			if f.rawToken != "" {
				token, decErr := base64.StdEncoding.DecodeString(f.rawToken)
				if decErr != nil {
					return fmt.Errorf("--version must be base64: %w", decErr)
				}
				req.VersionToken = token
			}
			if cmd.Flags().Changed("name") {
				req.Name = f.name
			}
			if cmd.Flags().Changed("enabled") {
				req.IsEnabled = f.enabled
			}
			if v := stringFlag(cmd, "os", f.os); v != nil {
				req.OperationSystem = v
			}
			if v := stringFlag(cmd, "ip", f.ip); v != nil {
				req.IPAddress = v
			}
			if v := stringFlag(cmd, "network", f.network); v != nil {
				req.NetworkName = v
			}
			if cmd.Flags().Changed("battery") {
				req.BatteryPercentage = &f.battery
			}

			token, err := c.Update(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return printJSON(out, map[string]any{"id": args[0], "version_token": token})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.rawToken, "version", "", "expected version token (base64)")
	return cmd
}

// updateFromCurrent seeds an update with a device's current values.
func updateFromCurrent(d device.Details) device.UpdateRequest {
	return device.UpdateRequest{
		Name:              d.Name,
		IsEnabled:         d.IsEnabled,
		VersionToken:      d.VersionToken,
		OperationSystem:   d.OperationSystem,
		IPAddress:         d.IPAddress,
		NetworkName:       d.NetworkName,
		BatteryPercentage: d.BatteryPercentage,
	}
}

func newDeleteCmd(out io.Writer, opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(out, "deleted %s\n", args[0])
			return nil
		},
	}
}

func newExportCmd(out io.Writer, opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the device inventory as an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				output = export.Filename(time.Now().Unix())
			}
			file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			if err := opts.client().Export(cmd.Context(), file); err != nil {
				//nolint:errcheck // Export error takes precedence
				file.Close()
				//nolint:errcheck // Best-effort cleanup
				os.Remove(output)
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", output, err)
			}
			fmt.Fprintf(out, "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default devices_<unix>.xlsx)")
	return cmd
}
