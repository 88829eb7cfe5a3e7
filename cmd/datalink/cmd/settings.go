package cmd

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/oneconcern/datalink/pkg/config"
)

// settingsCommand builds the get, set and clear commands of a category
func settingsCommand(category config.Category, short string, readOnly bool) *cobra.Command {
	parent := &cobra.Command{
		Use:   string(category),
		Short: short,
	}
	addGlobalFlag(parent)

	parent.AddCommand(&cobra.Command{
		Use:   "get [name...]",
		Short: "Print the effective " + string(category) + " settings as JSON",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := commandContext()
			defer cancel()
			out, err := getSettings(ctx, settingsResolver(ctx), category, args)
			if err != nil {
				fail(cmd, err)
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
		},
	})
	if readOnly {
		return parent
	}

	parent.AddCommand(&cobra.Command{
		Use:   "set <name=value>...",
		Short: "Set " + string(category) + " settings",
		Long: `Set settings. JSON settings take a JSON object, or a single field as name.FIELD=value.

JSON field names are upper-cased: two fields equal but for their case are rejected.`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := commandContext()
			defer cancel()
			loc := config.ParseLocation(datalinkFlags.settings.global)
			if err := setSettings(ctx, settingsResolver(ctx), category, loc, args); err != nil {
				fail(cmd, err)
			}
		},
	})
	parent.AddCommand(&cobra.Command{
		Use:   "clear [name...]",
		Short: "Clear " + string(category) + " settings, all of them by default",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := commandContext()
			defer cancel()
			loc := config.ParseLocation(datalinkFlags.settings.global)
			if err := clearSettings(ctx, settingsResolver(ctx), category, loc, args); err != nil {
				fail(cmd, err)
			}
		},
	})
	return parent
}

func settingsResolver(ctx context.Context) *config.Resolver {
	r := resolver(ctx, ".")
	if datalinkFlags.settings.global {
		return r.Restrict(config.Global)
	}
	return r
}

func getSettings(ctx context.Context, r *config.Resolver, category config.Category, names []string) (string, error) {
	dict, err := r.ConfigDict(ctx, category)
	if err != nil {
		return "", err
	}
	if len(names) > 0 {
		selected := make(map[string]interface{}, len(names))
		for _, name := range names {
			p, err := config.Lookup(category, name)
			if err != nil {
				return "", err
			}
			selected[p.Name] = dict[p.Name]
		}
		dict = selected
	}
	b, err := jsoniter.MarshalIndent(dict, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func setSettings(ctx context.Context, r *config.Resolver, category config.Category, loc config.Location, pairs []string) error {
	for _, pair := range pairs {
		name, value, err := parseKeyValue(pair)
		if err != nil {
			return err
		}
		field := ""
		if dot := strings.Index(name, "."); dot > 0 {
			name, field = name[:dot], name[dot+1:]
		}
		p, err := config.Lookup(category, name)
		if err != nil {
			return err
		}
		if field != "" {
			err = r.SetJSONField(ctx, p, field, value, loc)
		} else {
			err = r.Set(ctx, p, value, loc)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func clearSettings(ctx context.Context, r *config.Resolver, category config.Category, loc config.Location, names []string) error {
	if len(names) == 0 {
		return r.Clear(ctx, category, "", loc)
	}
	for _, name := range names {
		if err := r.Clear(ctx, category, name, loc); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(
		settingsCommand(config.CategoryConfig, "Settings of datalink: catalog, user, host, checksums", false),
		settingsCommand(config.CategoryDataSet, "Type and properties of the data sets to commit", false),
		settingsCommand(config.CategoryObject, "The catalog object data sets are attached to", false),
		settingsCommand(config.CategoryCollection, "The catalog collection data sets are attached to", false),
		settingsCommand(config.CategoryRepository, "Identity of the working copy", true),
	)
}
