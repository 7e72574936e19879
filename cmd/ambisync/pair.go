package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ambisync/internal/config"
	"ambisync/internal/light/hue"
)

const pairTimeout = 10 * time.Second

var (
	pairBridge string
	pairSave   bool
	huePairCmd = &cobra.Command{
		Use:   "hue-pair",
		Short: "Pair with a Hue bridge and list its entertainment areas",
		Long: `hue-pair registers ambisync with a Philips Hue bridge. Press the link
button on the bridge first. With --save the credentials and the first
entertainment area are written to the configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pair(cmd, pairBridge, pairSave)
		},
	}
)

func init() {
	huePairCmd.Flags().StringVar(&pairBridge, "bridge", "", "IP address of the Hue bridge")
	huePairCmd.Flags().BoolVar(&pairSave, "save", false, "Store the credentials in the configuration file")
	huePairCmd.MarkFlagRequired("bridge")
}

func pair(cmd *cobra.Command, bridge string, save bool) error {
	if net.ParseIP(bridge) == nil {
		return fmt.Errorf("invalid bridge address %q", bridge)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), pairTimeout)
	defer cancel()

	log.Debug().Str("bridge", bridge).Msg("Pairing with Hue bridge")

	username, clientkey, err := hue.NewBridge(bridge, "").Pair(ctx)
	if errors.Is(err, hue.ErrLinkButtonNotPressed) {
		return fmt.Errorf("press the link button on the bridge, then run hue-pair again: %w", err)
	}
	if err != nil {
		return err
	}

	areas, err := hue.NewBridge(bridge, username).EntertainmentAreas(ctx)
	if err != nil {
		return fmt.Errorf("fetching entertainment areas: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Paired with %s\n", bridge)
	if len(areas) == 0 {
		fmt.Fprintln(out, "No entertainment areas configured; create one in the Hue app.")
	}
	for _, a := range areas {
		fmt.Fprintf(out, "  %s  %s\n", a.ID, a)
	}

	if !save {
		fmt.Fprintf(out, "\nhue:\n  bridge: %s\n  username: %s\n  clientkey: %s\n", bridge, username, clientkey)
		return nil
	}

	if err := savePairing(configPath, appConfig, bridge, username, clientkey, areas); err != nil {
		return err
	}
	fmt.Fprintln(out, "Credentials saved.")
	return nil
}

// savePairing stores the credentials and the first entertainment area in cfg
// and writes it to path. cfg is validated only once the Hue section is
// complete, so a file that already selects the hue backend can be saved.
func savePairing(path string, cfg config.Config, bridge, username, clientkey string, areas []hue.EntertainmentArea) error {
	cfg.Hue.Bridge = bridge
	cfg.Hue.Username = username
	cfg.Hue.ClientKey = clientkey
	if len(areas) > 0 {
		cfg.Hue.AreaID = areas[0].ID
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}
	log.Info().Str("bridge", bridge).Msg("Hue credentials saved")
	return nil
}
