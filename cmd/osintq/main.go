package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

type client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type taskResp struct {
	ID           string    `json:"taskId"`
	State        string    `json:"state"`
	ProgressLog  []string  `json:"progressLog"`
	Findings     []finding `json:"findings"`
	ErrorMessage string    `json:"errorMessage"`
}

type finding struct {
	SourceName string `json:"sourceName"`
	FoundAt    string `json:"foundAt"`
	SourceLink string `json:"sourceLink"`
	Summary    string `json:"summary"`
}

type ui struct {
	title func(a ...any) string
	ok    func(a ...any) string
	info  func(a ...any) string
	warn  func(a ...any) string
	err   func(a ...any) string
	dim   func(a ...any) string
}

type profile struct {
	BaseURL string `yaml:"baseUrl"`
	Token   string `yaml:"token"`
}

type cliConfig struct {
	CurrentProfile string             `yaml:"currentProfile"`
	Profiles       map[string]profile `yaml:"profiles"`
}

func newUI() *ui {
	return &ui{
		title: color.New(color.FgHiCyan, color.Bold).SprintFunc(),
		ok:    color.New(color.FgGreen, color.Bold).SprintFunc(),
		info:  color.New(color.FgCyan).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		err:   color.New(color.FgRed, color.Bold).SprintFunc(),
		dim:   color.New(color.FgHiBlack).SprintFunc(),
	}
}

func (c *client) request(method, path string, body any) (int, []byte, error) {
	var buf *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		buf = bytes.NewReader(b)
	} else {
		buf = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, c.baseURL+path, buf)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, nil
}

func main() {
	baseURL := getenv("OSINTQ_BASE_URL", "http://localhost:8080")
	token := getenv("OSINTQ_TOKEN", "")
	profileName := getenv("OSINTQ_PROFILE", "")
	ui := newUI()

	root := &cobra.Command{
		Use:   "osintq",
		Short: "osintq CLI",
		Long:  "osintq CLI for submitting and tracking OSINT investigations.",
	}
	root.SetHelpTemplate(helpTemplate(ui))
	root.SilenceUsage = true

	root.PersistentFlags().StringVar(&baseURL, "base-url", baseURL, "Base URL for osintq")
	root.PersistentFlags().StringVar(&token, "token", token, "Bearer token")
	root.PersistentFlags().StringVar(&profileName, "profile", profileName, "Config profile")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, _, _ := loadConfig()
		active := resolveProfileName(profileName, cfg)
		prof := cfg.Profiles[active]

		flags := cmd.Flags()
		if !flags.Changed("base-url") {
			if v := strings.TrimSpace(os.Getenv("OSINTQ_BASE_URL")); v != "" {
				baseURL = v
			} else if prof.BaseURL != "" {
				baseURL = prof.BaseURL
			}
		}
		if !flags.Changed("token") {
			if v := strings.TrimSpace(os.Getenv("OSINTQ_TOKEN")); v != "" {
				token = v
			} else if prof.Token != "" {
				token = prof.Token
			}
		}
		if !flags.Changed("profile") && profileName == "" && active != "" {
			profileName = active
		}
		return nil
	}

	root.AddCommand(initCmd(&profileName, ui))
	root.AddCommand(authCmd(&profileName, ui))
	root.AddCommand(investigateCmd(&baseURL, &token, ui))
	root.AddCommand(statusCmd(&baseURL, &token, ui))
	root.AddCommand(healthCmd(&baseURL, &token, ui))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.err("[ERROR]"), err.Error())
		os.Exit(1)
	}
}

func initCmd(profileName *string, ui *ui) *cobra.Command {
	var (
		baseURL  string
		token    string
		noPrompt bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize CLI config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := loadConfig()
			if err != nil {
				return err
			}
			active := resolveProfileName(*profileName, cfg)
			prof := cfg.Profiles[active]

			if baseURL == "" {
				baseURL = prof.BaseURL
			}
			if baseURL == "" {
				baseURL = "http://localhost:8080"
			}

			if !noPrompt {
				reader := bufio.NewReader(os.Stdin)
				baseURL = prompt(reader, "Base URL", baseURL)
				if token == "" {
					token = prompt(reader, "Bearer token (optional)", "")
				}
			}

			prof.BaseURL = strings.TrimSpace(baseURL)
			if token != "" {
				prof.Token = strings.TrimSpace(token)
			}

			if cfg.Profiles == nil {
				cfg.Profiles = map[string]profile{}
			}
			cfg.Profiles[active] = prof
			if cfg.CurrentProfile == "" || *profileName != "" {
				cfg.CurrentProfile = active
			}

			if err := saveConfig(cfg, cfgPath); err != nil {
				return err
			}
			fmt.Printf("%s Initialized profile '%s' at %s\n", ui.ok("[OK]"), active, cfgPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL for osintq")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token")
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Disable interactive prompts")
	return cmd
}

func authCmd(profileName *string, ui *ui) *cobra.Command {
	auth := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored credentials",
	}

	var token string
	set := &cobra.Command{
		Use:   "set",
		Short: "Store a token in config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				t, err := promptSecret("Token")
				if err != nil {
					return err
				}
				token = t
			}
			if token == "" {
				return errors.New("token is required")
			}
			cfg, cfgPath, err := loadConfig()
			if err != nil {
				return err
			}
			active := resolveProfileName(*profileName, cfg)
			prof := cfg.Profiles[active]
			prof.Token = strings.TrimSpace(token)
			if cfg.Profiles == nil {
				cfg.Profiles = map[string]profile{}
			}
			cfg.Profiles[active] = prof
			if cfg.CurrentProfile == "" || *profileName != "" {
				cfg.CurrentProfile = active
			}
			if err := saveConfig(cfg, cfgPath); err != nil {
				return err
			}
			fmt.Printf("%s Credentials updated for '%s'\n", ui.ok("[OK]"), active)
			return nil
		},
	}
	set.Flags().StringVar(&token, "token", "", "Bearer token")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show stored credentials (masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			active := resolveProfileName(*profileName, cfg)
			prof := cfg.Profiles[active]
			fmt.Printf("%s Profile: %s\n", ui.title("osintq"), active)
			fmt.Printf("%s Base URL: %s\n", ui.info("•"), emptyOr(prof.BaseURL, "<unset>"))
			fmt.Printf("%s Token:    %s\n", ui.info("•"), maskToken(prof.Token))
			return nil
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Clear the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := loadConfig()
			if err != nil {
				return err
			}
			active := resolveProfileName(*profileName, cfg)
			prof := cfg.Profiles[active]
			prof.Token = ""
			cfg.Profiles[active] = prof
			if err := saveConfig(cfg, cfgPath); err != nil {
				return err
			}
			fmt.Printf("%s Token cleared for '%s'\n", ui.ok("[OK]"), active)
			return nil
		},
	}

	auth.AddCommand(set, show, clear)
	return auth
}

func investigateCmd(baseURL, token *string, ui *ui) *cobra.Command {
	var (
		phone   string
		id      string
		cve     string
		keyword string
		webhook string
		watch   bool
	)
	cmd := &cobra.Command{
		Use:     "investigate",
		Short:   "Submit an investigation",
		Example: "osintq investigate --cve CVE-2024-3094 --watch",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(*baseURL, *token)
			body := map[string]any{}
			if phone != "" {
				body["phoneNumber"] = phone
			}
			if id != "" {
				body["identifier"] = id
			}
			if cve != "" {
				body["cve"] = cve
			}
			if keyword != "" {
				body["keyword"] = keyword
			}
			if webhook != "" {
				body["webhook"] = webhook
			}

			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Submitting investigation..."
			spin.Start()
			status, resp, err := c.request("POST", "/v1/osintq/investigations", body)
			spin.Stop()
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			var out taskResp
			if err := json.Unmarshal(resp, &out); err != nil {
				fmt.Println(string(resp))
				return nil
			}
			fmt.Printf("%s Investigation submitted: %s\n", ui.ok("[OK]"), out.ID)
			if !watch {
				return nil
			}
			return watchTask(c, out.ID, ui)
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number to investigate")
	cmd.Flags().StringVar(&id, "id", "", "Identifier (email, username, org)")
	cmd.Flags().StringVar(&cve, "cve", "", "CVE identifier")
	cmd.Flags().StringVar(&keyword, "keyword", "", "Free-form keyword")
	cmd.Flags().StringVar(&webhook, "webhook", "", "Completion webhook URL")
	cmd.Flags().BoolVar(&watch, "watch", false, "Poll until the investigation finishes")
	return cmd
}

func statusCmd(baseURL, token *string, ui *ui) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Get an investigation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(*baseURL, *token)
			if watch {
				return watchTask(c, args[0], ui)
			}
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Fetching investigation..."
			spin.Start()
			status, resp, err := c.request("GET", "/v1/osintq/investigations/"+url.PathEscape(args[0]), nil)
			spin.Stop()
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			var task taskResp
			if err := json.Unmarshal(resp, &task); err != nil {
				fmt.Println(string(resp))
				return nil
			}
			printTask(&task, ui)
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Poll until the investigation finishes")
	return cmd
}

func healthCmd(baseURL, token *string, ui *ui) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check service health",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(*baseURL, *token)
			status, resp, err := c.request("GET", "/health", nil)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fmt.Errorf("unhealthy (%d): %s", status, string(resp))
			}
			fmt.Printf("%s %s is healthy\n", ui.ok("[OK]"), c.baseURL)
			return nil
		},
	}
}

// watchTask polls the investigation until it reaches a terminal state,
// streaming progress-log lines as they appear. Scrape steps drive a progress
// bar when the output is a terminal.
func watchTask(c *client, id string, ui *ui) error {
	seen := 0
	var bar *progressbar.ProgressBar
	spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
	spin.Suffix = " Investigating..."
	if isTerminal() {
		spin.Start()
	}

	for {
		status, resp, err := c.request("GET", "/v1/osintq/investigations/"+url.PathEscape(id), nil)
		if err != nil {
			spin.Stop()
			return err
		}
		if status >= 300 {
			spin.Stop()
			return fmt.Errorf("error (%d): %s", status, string(resp))
		}
		var task taskResp
		if err := json.Unmarshal(resp, &task); err != nil {
			spin.Stop()
			return err
		}

		for ; seen < len(task.ProgressLog); seen++ {
			line := task.ProgressLog[seen]
			spin.Stop()
			fmt.Println(ui.dim(line))
			if cur, total, ok := parseStep(line); ok && isTerminal() {
				if bar == nil {
					bar = progressbar.NewOptions(total,
						progressbar.OptionSetDescription("Scraping sources"),
						progressbar.OptionSetWidth(18),
						progressbar.OptionShowCount(),
						progressbar.OptionClearOnFinish(),
					)
				}
				_ = bar.Set(cur)
			}
			if isTerminal() {
				spin.Start()
			}
		}

		switch task.State {
		case "COMPLETED":
			spin.Stop()
			if bar != nil {
				_ = bar.Finish()
			}
			printTask(&task, ui)
			return nil
		case "FAILED":
			spin.Stop()
			if bar != nil {
				_ = bar.Finish()
			}
			printTask(&task, ui)
			return fmt.Errorf("investigation failed: %s", task.ErrorMessage)
		}
		time.Sleep(1 * time.Second)
	}
}

// parseStep recognizes "[i/n] ..." progress entries; the timestamp prefix is
// skipped by scanning for the first bracket.
func parseStep(line string) (cur, total int, ok bool) {
	idx := strings.Index(line, "[")
	if idx < 0 {
		return 0, 0, false
	}
	if n, err := fmt.Sscanf(line[idx:], "[%d/%d]", &cur, &total); err != nil || n != 2 {
		return 0, 0, false
	}
	return cur, total, true
}

func printTask(task *taskResp, ui *ui) {
	stateStr := task.State
	switch task.State {
	case "COMPLETED":
		stateStr = ui.ok(task.State)
	case "FAILED":
		stateStr = ui.err(task.State)
	case "RUNNING":
		stateStr = ui.info(task.State)
	default:
		stateStr = ui.warn(task.State)
	}
	fmt.Printf("%s %s  %s\n", ui.title("osintq"), task.ID, stateStr)
	if task.ErrorMessage != "" {
		fmt.Printf("%s %s\n", ui.err("[ERROR]"), task.ErrorMessage)
	}
	if len(task.Findings) == 0 {
		fmt.Println(ui.dim("No findings."))
		return
	}
	fmt.Printf("%s %d finding(s):\n", ui.info("[INFO]"), len(task.Findings))
	for _, f := range task.Findings {
		fmt.Printf("  %s %s %s\n", ui.ok("•"), f.SourceName, ui.dim(f.SourceLink))
		fmt.Printf("    %s\n", f.Summary)
	}
}

func newClient(baseURL, token string) *client {
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func helpTemplate(ui *ui) string {
	title := ui.title("osintq")
	return fmt.Sprintf(`%s — CLI for osintq

Usage:
  {{.UseLine}}

Commands:
{{range .Commands}}{{if (or .IsAvailableCommand .IsAdditionalHelpTopicCommand)}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

Flags:
  {{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

Global Flags:
  {{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

Config:
  %s

Examples:
  osintq init
  osintq investigate --cve CVE-2024-3094 --watch
  osintq investigate --id acme-corp --keyword "data breach" --webhook https://hooks.example.com/osint
  osintq status 2f0c7a9e-1d4b-4b7e-9a55-0d5b7c431b11

`, title, configPath())
}

func configPath() string {
	if v := strings.TrimSpace(os.Getenv("OSINTQ_CONFIG_DIR")); v != "" {
		return filepath.Join(v, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".osintq", "config.yaml")
}

func promptSecret(label string) (string, error) {
	fmt.Printf("%s: ", label)
	b, err := termReadPassword()
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func termReadPassword() ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		return []byte(strings.TrimSpace(line)), err
	}
	return term.ReadPassword(fd)
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func loadConfig() (cliConfig, string, error) {
	path := configPath()
	var cfg cliConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cliConfig{Profiles: map[string]profile{}}, path, nil
		}
		return cfg, path, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, path, err
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]profile{}
	}
	return cfg, path, nil
}

func saveConfig(cfg cliConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func resolveProfileName(flag string, cfg cliConfig) string {
	if strings.TrimSpace(flag) != "" {
		return strings.TrimSpace(flag)
	}
	if v := strings.TrimSpace(os.Getenv("OSINTQ_PROFILE")); v != "" {
		return v
	}
	if cfg.CurrentProfile != "" {
		return cfg.CurrentProfile
	}
	return "default"
}

func prompt(r *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func maskToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "<unset>"
	}
	if len(v) <= 8 {
		return "****"
	}
	return v[:4] + "..." + v[len(v)-4:]
}

func emptyOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
