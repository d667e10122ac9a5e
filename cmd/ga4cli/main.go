package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"ga4cli/internal/api"
	"ga4cli/internal/cache"
	"ga4cli/internal/classify"
	"ga4cli/internal/config"
	"ga4cli/internal/preset"
	"ga4cli/internal/query"
	"ga4cli/internal/results"

	"github.com/spf13/cobra"
	"hermannm.dev/devlog"
	"hermannm.dev/devlog/log"
)

var version = "0.1.0"

// cli holds the state shared by all command handlers of one invocation.
type cli struct {
	settings config.Settings
	stdout   io.Writer
	stderr   io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "ga4cli",
		Short: "Query Google Analytics 4 reports from the command line",
		Long: `ga4cli runs GA4 Data API reports (standard, pivot, realtime, cohort, funnel and
batched) and reads account metadata from the Admin API.

Examples:
  ga4cli config set --client-id <id> --client-secret <secret>
  ga4cli preset create work --refresh-token <token>
  ga4cli report run 123 --dimensions city --metrics sessions --limit 10
  ga4cli report run 123 --metrics sessions --filter "deviceCategory == mobile" --json
  echo '[{"name":"top","dimensions":"pagePath","metrics":"sessions"}]' | ga4cli batch 123`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.Bool("json", false, "Output JSON")
	flags.Bool("csv", false, "Output CSV")
	flags.String("output", "", "Write output to this file instead of stdout")
	flags.String("property", "", "GA4 property ID (saved as the default property)")
	flags.String("preset", "", "Preset to use (overrides the active preset)")
	flags.Bool("verbose", false, "Enable debug logging and show the full error chain")

	rootCmd.AddCommand(
		newReportCmd(c),
		newBatchCmd(c),
		newMetadataCmd(c),
		newAccountsCmd(c),
		newPropertiesCmd(c),
		newStreamsCmd(c),
		newLinksCmd(c),
		newSettingsCmd(c),
		newUsersCmd(c),
		newConfigCmd(c),
		newPresetCmd(c),
		newCacheCmd(c),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		printError(stderr, err, verbose)
		return 1
	}
	return 0
}

// printError classifies err once and prints the user-facing message.
func printError(w io.Writer, err error, verbose bool) {
	classification := classify.Classify(err)

	switch classification.Category {
	case classify.CategoryUnauthenticated, classify.CategoryQuotaExceeded:
		fmt.Fprintln(w, classification.Message)
	default:
		fmt.Fprintf(w, "Error: %s\n", classification.Message)
	}

	if classification.Suggestion != "" {
		fmt.Fprintf(w, "Did you mean: %s?\n", classification.Suggestion)
	}

	if verbose {
		fmt.Fprintf(w, "\nCause (%s):\n%v\n", classification.Category, err)
	}
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(devlog.NewHandler(c.stderr, &devlog.Options{Level: level})))

	settings, err := config.Resolve()
	if err != nil {
		return err
	}
	c.settings = settings

	if property, _ := cmd.Flags().GetString("property"); property != "" {
		property = query.PropertyPath(property)
		if err := config.SetDefaultProperty(property); err != nil {
			return err
		}
		c.settings.DefaultProperty = property
		log.Debug("Saved default property", slog.String("property", property))
	}

	return nil
}

// property picks the target property: the positional argument, then --property
// or the configured default, then the active preset's default.
func (c *cli) property(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return query.PropertyPath(args[0]), nil
	}
	if c.settings.DefaultProperty != "" {
		return query.PropertyPath(c.settings.DefaultProperty), nil
	}

	if c.settings.AccessToken == "" {
		active, err := preset.Active(c.presetName(cmd))
		if err != nil {
			return "", err
		}
		if active != nil && active.DefaultProperty != "" {
			return query.PropertyPath(active.DefaultProperty), nil
		}
	}

	return "", errors.New("no property given: pass a property ID, use --property, or run 'ga4cli config set default_property <id>'")
}

func (c *cli) presetName(cmd *cobra.Command) string {
	if name, _ := cmd.Flags().GetString("preset"); name != "" {
		return name
	}
	return c.settings.ActivePreset
}

// cacheNamespace keys the metadata cache file by credentials, so presets for
// different users never share cached catalogs.
func (c *cli) cacheNamespace(cmd *cobra.Command) string {
	if c.settings.AccessToken != "" {
		return cache.DefaultNamespace
	}
	if name := c.presetName(cmd); name != "" {
		return name
	}
	return cache.DefaultNamespace
}

func (c *cli) credentials(cmd *cobra.Command) (api.HTTPClientSource, error) {
	if c.settings.AccessToken != "" {
		log.Debug("Using access token from environment")
		return api.StaticToken(c.settings.AccessToken), nil
	}

	active, err := preset.Active(c.presetName(cmd))
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, fmt.Errorf("%w: no active preset", api.ErrNotAuthenticated)
	}

	return api.NewAuthClient(c.settings.ClientID, c.settings.ClientSecret, active.RefreshToken)
}

func (c *cli) requestsPerSecond() float64 {
	if c.settings.RequestsPerSecond == 0 {
		return api.DefaultRequestsPerSecond
	}
	return c.settings.RequestsPerSecond
}

// dataClient builds a Data API client. With withCache, metadata lookups go
// through the DuckDB cache; if the cache cannot be opened the client runs
// without it. The returned func releases the cache.
func (c *cli) dataClient(cmd *cobra.Command, withCache bool) (*api.DataClient, func(), error) {
	auth, err := c.credentials(cmd)
	if err != nil {
		return nil, nil, err
	}

	opts := []api.DataClientOption{api.WithRequestsPerSecond(c.requestsPerSecond())}
	if c.settings.DataAPIURL != "" {
		alphaURL := c.settings.DataAPIAlphaURL
		if alphaURL == "" {
			alphaURL = c.settings.DataAPIURL
		}
		opts = append(opts, api.WithBaseURLs(c.settings.DataAPIURL, alphaURL))
	}

	release := func() {}
	if withCache {
		metadataCache, err := c.openCache(cmd)
		if err != nil {
			log.ErrorCause(err, "Metadata cache unavailable, continuing without it")
		} else {
			opts = append(opts, api.WithMetadataCache(metadataCache))
			release = func() { metadataCache.Close() }
		}
	}

	return api.NewDataClient(auth, opts...), release, nil
}

func (c *cli) adminClient(cmd *cobra.Command) (*api.AdminClient, error) {
	auth, err := c.credentials(cmd)
	if err != nil {
		return nil, err
	}
	return api.NewAdminClient(auth, c.settings.AdminAPIURL, c.settings.AdminAPIAlphaURL, c.requestsPerSecond()), nil
}

func (c *cli) openCache(cmd *cobra.Command) (*cache.MetadataCache, error) {
	namespace := c.cacheNamespace(cmd)
	path, err := cache.DefaultPath(namespace)
	if err != nil {
		return nil, err
	}
	return cache.Open(path, namespace, cache.DefaultTTL)
}

// writer renders to stdout (or --output) in the format picked by --json,
// --csv or the configured output_format, in that order.
func (c *cli) writer(cmd *cobra.Command) *results.Writer {
	format := results.ParseFormat(c.settings.OutputFormat)
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		format = results.FormatJSON
	} else if asCSV, _ := cmd.Flags().GetBool("csv"); asCSV {
		format = results.FormatCSV
	}

	outputPath, _ := cmd.Flags().GetString("output")
	return results.NewWriter(results.Options{Format: format, OutputPath: outputPath}, c.stdout)
}
