package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rnwolfe/tasky/internal/hook"
	"github.com/rnwolfe/tasky/internal/log"
	"github.com/rnwolfe/tasky/internal/proj"
	"github.com/rnwolfe/tasky/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var (
	hookInitEvent string
	hookInitID    string
	hookPayload   string
	hookLogLimit  int
	hookLogAll    bool
)

// maxParallelChecks bounds concurrent manifest checks in `hook check`.
const maxParallelChecks = 8

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Automate a project with event-driven scripts",
	Long: `Hooks are programs listed in .tasky/hooks/hook.json. Each receives the
event payload as JSON on stdin and may print a replacement JSON object.`,
	RunE: runHookList,
}

var hookInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold hook.json and a starter script",
	Long: `Create .tasky/hooks/hook.json with one hook and its starter script.

Examples:
  tasky hook init
  tasky hook init --event task.post_complete --id notify`,
	Args: cobra.NoArgs,
	RunE: runHookInit,
}

var hookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List this project's hooks in execution order",
	RunE:  runHookList,
}

var hookValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate this project's hook.json",
	Args:  cobra.NoArgs,
	RunE:  runHookValidate,
}

var hookCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate hook manifests of every registered project",
	Args:  cobra.NoArgs,
	RunE:  runHookCheck,
}

var hookRunCmd = &cobra.Command{
	Use:   "run <event>",
	Short: "Run an event's hooks and print the final payload",
	Long: `Run the hooks registered for an event without touching any tasks.

The payload comes from --payload, or from stdin when it is piped. With
neither, a sample payload for the event is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runHookRun,
}

var hookTestCmd = &cobra.Command{
	Use:   "test <id>",
	Short: "Dry-run one hook with a sample payload",
	Args:  cobra.ExactArgs(1),
	RunE:  runHookTest,
}

var hookEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List the events hooks can subscribe to",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		for _, e := range hook.AllEvents {
			fmt.Println(e)
		}
	},
}

var hookLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent hook runs",
	Args:  cobra.NoArgs,
	RunE:  runHookLog,
}

func init() {
	hookCmd.AddCommand(hookInitCmd)
	hookCmd.AddCommand(hookListCmd)
	hookCmd.AddCommand(hookValidateCmd)
	hookCmd.AddCommand(hookCheckCmd)
	hookCmd.AddCommand(hookRunCmd)
	hookCmd.AddCommand(hookTestCmd)
	hookCmd.AddCommand(hookEventsCmd)
	hookCmd.AddCommand(hookLogCmd)

	hookInitCmd.Flags().StringVar(&hookInitEvent, "event", string(hook.TaskPreAdd), "Event the starter hook handles")
	hookInitCmd.Flags().StringVar(&hookInitID, "id", "", "Hook id, also the script name (default: derived from the event)")
	hookRunCmd.Flags().StringVar(&hookPayload, "payload", "", "Payload JSON object")
	hookLogCmd.Flags().IntVarP(&hookLogLimit, "limit", "n", 20, "Number of rows to show")
	hookLogCmd.Flags().BoolVar(&hookLogAll, "all", false, "Show runs from every project")
}

// defaultHookID turns task.pre_add into task-pre-add.
func defaultHookID(event hook.Event) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(string(event))
}

func currentRoot() (string, error) {
	a, err := openApp()
	if err != nil {
		return "", err
	}
	defer a.Close()
	return a.projectRoot()
}

func runHookInit(_ *cobra.Command, _ []string) error {
	event, err := hook.ParseEvent(hookInitEvent)
	if err != nil {
		return fmt.Errorf("%w (see %s)", err, ui.Accent.Render("tasky hook events"))
	}
	id := hookInitID
	if id == "" {
		id = defaultHookID(event)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	root, err := a.projectRoot()
	if err != nil {
		return err
	}
	manifestPath, scriptPath, err := hook.InitManifest(root, event, id)
	if err != nil {
		return err
	}
	store := a.runner.Store()
	store.Invalidate(root)
	if _, err := store.Get(root); err != nil {
		return fmt.Errorf("scaffolded manifest does not load: %w", err)
	}

	ui.Ok(fmt.Sprintf("Created %s", manifestPath))
	fmt.Println()
	fmt.Printf("  Hook:   %s\n", ui.Accent.Render(id))
	fmt.Printf("  Event:  %s\n", ui.Accent.Render(string(event)))
	fmt.Printf("  Script: %s\n", ui.Accent.Render(scriptPath))
	fmt.Println()
	fmt.Printf("  Edit:   %s\n", ui.Accent.Render("$EDITOR "+scriptPath))
	fmt.Printf("  Test:   %s\n", ui.Accent.Render("tasky hook test "+id))
	fmt.Println()
	return nil
}

func runHookList(_ *cobra.Command, _ []string) error {
	root, err := currentRoot()
	if err != nil {
		return err
	}
	m, err := hook.NewManifestStore().Get(root)
	if err != nil {
		return err
	}

	if m == nil || len(m.Hooks) == 0 {
		fmt.Println()
		fmt.Println(ui.Muted.Render("  No hooks configured."))
		fmt.Println()
		fmt.Printf("  Manifest: %s\n", ui.Accent.Render(hook.ManifestPath(root)))
		fmt.Printf("  Create one: %s\n", ui.Accent.Render("tasky hook init"))
		fmt.Println()
		return nil
	}

	fmt.Println()
	fmt.Println(ui.Title.Render("  Project Hooks"))
	fmt.Println()
	for _, e := range hook.AllEvents {
		for _, d := range m.ForEvent(e) {
			mode := "abort on error"
			if d.ContinueOnError {
				mode = "continue on error"
			}
			fmt.Printf("  %s %-22s %-20s %s  %s\n",
				ui.Success.Render("●"),
				ui.Accent.Render(string(e)),
				d.ID,
				ui.Muted.Render(strings.Join(d.Command, " ")),
				ui.Muted.Render(fmt.Sprintf("(%s, %s)", d.Timeout, mode)),
			)
		}
	}
	fmt.Println()
	fmt.Printf("  %s\n", ui.Muted.Render(fmt.Sprintf("%d hooks in %s", len(m.Hooks), m.Path)))
	fmt.Println()
	return nil
}

func runHookValidate(_ *cobra.Command, _ []string) error {
	root, err := currentRoot()
	if err != nil {
		return err
	}
	path := hook.ManifestPath(root)
	m, err := hook.LoadManifest(path)
	if errors.Is(err, os.ErrNotExist) {
		ui.Inf(fmt.Sprintf("No manifest at %s; hooks are off for this project.", path))
		return nil
	}
	if err != nil {
		return err
	}
	ui.Ok(fmt.Sprintf("%s is valid (%d hooks)", path, len(m.Hooks)))
	return nil
}

// checkResult is one row of `hook check`.
type checkResult struct {
	project proj.Project
	hooks   int
	found   bool
	err     error
}

// checkProjects validates every project's manifest concurrently through one
// shared store. A manifest served from the last good version still counts as
// invalid.
func checkProjects(store *hook.ManifestStore, projects []proj.Project) []checkResult {
	results := make([]checkResult, len(projects))

	var g errgroup.Group
	g.SetLimit(maxParallelChecks)
	for i, p := range projects {
		i, p := i, p
		g.Go(func() error {
			r := checkResult{project: p}
			m, err := store.Get(p.Path)
			if err == nil {
				err = store.LastError(p.Path)
			}
			r.err = err
			if m != nil {
				r.found = true
				r.hooks = len(m.Hooks)
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()
	log.Debug("hook check: %d manifests parsed", store.Parses())
	return results
}

func runHookCheck(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	projects, err := a.projects.List()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		ui.Inf("No projects registered.")
		return nil
	}

	failed := 0
	fmt.Println()
	for _, r := range checkProjects(a.runner.Store(), projects) {
		switch {
		case r.err != nil:
			failed++
			fmt.Printf("  %s %-20s %s\n", ui.Error.Render(ui.IconError), r.project.Name, ui.Error.Render(r.err.Error()))
		case !r.found:
			fmt.Printf("  %s %-20s %s\n", ui.Muted.Render(ui.IconDot), r.project.Name, ui.Muted.Render("no hooks"))
		default:
			fmt.Printf("  %s %-20s %s\n", ui.Success.Render(ui.IconOk), r.project.Name, fmt.Sprintf("%d hooks", r.hooks))
		}
	}
	fmt.Println()

	if failed > 0 {
		return fmt.Errorf("%d of %d projects have an invalid hook manifest", failed, len(projects))
	}
	return nil
}

// stdinIsInteractive reports whether stdin is a terminal rather than a pipe.
func stdinIsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readRunPayload picks the payload for `hook run`: --payload, piped stdin,
// or the event's sample.
func readRunPayload(event hook.Event, root string, flag string, stdin io.Reader, interactive bool) (hook.Payload, error) {
	if flag != "" {
		p, err := hook.ParsePayload([]byte(flag))
		if err != nil {
			return hook.Payload{}, fmt.Errorf("--payload: %w", err)
		}
		return p, nil
	}
	if !interactive {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return hook.Payload{}, fmt.Errorf("reading payload from stdin: %w", err)
		}
		if len(strings.TrimSpace(string(data))) > 0 {
			p, err := hook.ParsePayload(data)
			if err != nil {
				return hook.Payload{}, fmt.Errorf("stdin payload: %w", err)
			}
			return p, nil
		}
	}
	return hook.SamplePayload(event, root), nil
}

// formatPayload indents for terminals and stays compact for pipes.
func formatPayload(p hook.Payload, tty bool) string {
	if tty {
		return p.Indent()
	}
	return p.String()
}

func runHookRun(cmd *cobra.Command, args []string) error {
	event, err := hook.ParseEvent(args[0])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	root, err := a.projectRoot()
	if err != nil {
		return err
	}
	in, err := readRunPayload(event, root, hookPayload, cmd.InOrStdin(), stdinIsInteractive())
	if err != nil {
		return err
	}

	// Explicit runs ignore hooks.enabled.
	a.runner.SetEnabled(true)
	out, err := a.runner.Run(commandContext(cmd), root, event, in)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatPayload(out, ui.IsStdoutTTY()))
	return nil
}

func runHookTest(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	root, err := a.projectRoot()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  Testing: %s\n", ui.Accent.Render(args[0]))
	fmt.Println()

	res, input, err := hook.TestHook(commandContext(cmd), a.invoker, root, args[0])
	if res == nil {
		return err
	}

	fmt.Printf("  Input:\n%s\n\n", indentLines(input.Indent(), "    "))
	if res.Stderr != "" {
		fmt.Printf("  Stderr:\n%s\n\n", indentLines(strings.TrimRight(res.Stderr, "\n"), "    "))
	}
	if err != nil {
		return err
	}

	ui.Ok(fmt.Sprintf("Hook exited 0 in %s", res.Elapsed.Round(time.Millisecond)))
	if res.Output != nil {
		fmt.Printf("\n  Output payload:\n%s\n", indentLines(res.Output.Indent(), "    "))
	} else {
		fmt.Println(ui.Muted.Render("  No JSON object on stdout; payload passes through unchanged."))
	}
	fmt.Println()
	return nil
}

func indentLines(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func runHookLog(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	root := ""
	if !hookLogAll {
		if root, err = a.projectRoot(); err != nil {
			return err
		}
	}

	steps, err := a.audit.Recent(commandContext(cmd), root, hookLogLimit)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		ui.Inf("No hook runs recorded.")
		return nil
	}

	fmt.Println()
	for _, s := range steps {
		state := ui.Success.Render(string(s.State))
		if s.State != hook.StateSucceeded {
			state = ui.Error.Render(string(s.State))
		}
		mutated := ""
		if s.Mutated {
			mutated = ui.Muted.Render(" (mutated)")
		}
		fmt.Printf("  %s  %-20s %-18s %s %s%s\n",
			ui.Muted.Render(s.At.Local().Format("2006-01-02 15:04:05")),
			string(s.Event),
			s.HookID,
			state,
			ui.Muted.Render(s.Elapsed.String()),
			mutated,
		)
	}
	fmt.Println()
	return nil
}
