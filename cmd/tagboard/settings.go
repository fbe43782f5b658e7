package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tagging-ai/tagboard/pkg/models"
)

// settingKeys maps a dotted key to a setter on models.Settings.
var settingKeys = map[string]func(s *models.Settings, value string) error{
	"api_endpoint": func(s *models.Settings, v string) error {
		s.APIEndpoint = strings.TrimSpace(v)
		return nil
	},
	"save_history": func(s *models.Settings, v string) error {
		return parseBool(v, &s.SaveHistory)
	},
	"notifications.high_priority_alerts": func(s *models.Settings, v string) error {
		return parseBool(v, &s.Notifications.HighPriorityAlerts)
	},
	"notifications.batch_complete": func(s *models.Settings, v string) error {
		return parseBool(v, &s.Notifications.BatchComplete)
	},
}

func parseBool(v string, dst *bool) error {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "yes":
		*dst = true
		return nil
	case "off", "no":
		*dst = false
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("expected true or false, got %q", v)
	}
	*dst = b
	return nil
}

func (c *cli) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show user settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := c.prefs
			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), s)
			}
			w := cmd.OutOrStdout()
			endpoint := s.APIEndpoint
			if endpoint == "" {
				endpoint = "(config: " + c.cfg.Backend.BaseURL + ")"
			}
			fmt.Fprintf(w, "api_endpoint                        %s\n", endpoint)
			fmt.Fprintf(w, "save_history                        %t\n", s.SaveHistory)
			fmt.Fprintf(w, "notifications.high_priority_alerts  %t\n", s.Notifications.HighPriorityAlerts)
			fmt.Fprintf(w, "notifications.batch_complete        %t\n", s.Notifications.BatchComplete)
			return nil
		},
	}

	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Change a setting",
		Long:      "Change a setting. Keys: " + strings.Join(keys, ", ") + ".\nA new api_endpoint applies from the next command.",
		Args:      cobra.ExactArgs(2),
		ValidArgs: keys,
		RunE: func(cmd *cobra.Command, args []string) error {
			setter, ok := settingKeys[args[0]]
			if !ok {
				return fmt.Errorf("unknown setting %q, use one of: %s", args[0], strings.Join(keys, ", "))
			}
			s := c.prefs
			if err := setter(&s, args[1]); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if err := c.settings.Save(s); err != nil {
				return err
			}
			c.prefs = s
			fmt.Fprintln(cmd.OutOrStdout(), "Settings saved")
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.settings.Save(models.DefaultSettings()); err != nil {
				return err
			}
			c.prefs = models.DefaultSettings()
			fmt.Fprintln(cmd.OutOrStdout(), "Settings reset")
			return nil
		},
	}

	cmd.AddCommand(set, reset)
	return cmd
}
