package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rnwolfe/tasky/internal/task"
	"github.com/rnwolfe/tasky/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	taskDetails string
	taskParent  int
	taskAll     bool
	taskName    string
)

var taskCmd = &cobra.Command{
	Use:     "task",
	Aliases: []string{"t"},
	Short:   "Manage project tasks",
	RunE:    runTaskList,
}

var taskAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a task (fires task.pre_add / task.post_add)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List open tasks",
	RunE:    runTaskList,
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Complete a task (fires task.pre_complete / task.post_complete)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDone,
}

var taskReopenCmd = &cobra.Command{
	Use:   "reopen <id>",
	Short: "Reopen a completed task (fires task.pre_reopen / task.post_reopen)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskReopen,
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a task's name or details (fires task.pre_update / task.post_update)",
	Long: `Change a task's name or details. Only the flags you pass are sent to
hooks and applied.

Examples:
  tasky task update 3 --name "Buy oat milk"
  tasky task update 3 --details ""`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskUpdate,
}

var taskRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a task and its subtasks (fires task.pre_remove / task.post_remove)",
	Args:    cobra.ExactArgs(1),
	RunE:    runTaskRemove,
}

var taskImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Import tasks from a JSON array (fires task.pre_import / task.post_import)",
	Long: `Import tasks from a JSON array of {"name", "details", "parent_id"} objects.
Use - to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskImport,
}

func init() {
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskReopenCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskRemoveCmd)
	taskCmd.AddCommand(taskImportCmd)

	taskAddCmd.Flags().StringVarP(&taskDetails, "details", "d", "", "Task details")
	taskAddCmd.Flags().IntVar(&taskParent, "parent", 0, "Parent task id")
	taskListCmd.Flags().BoolVarP(&taskAll, "all", "a", false, "Include completed tasks")
	taskCmd.Flags().BoolVarP(&taskAll, "all", "a", false, "Include completed tasks")
	taskUpdateCmd.Flags().StringVarP(&taskName, "name", "n", "", "New name")
	taskUpdateCmd.Flags().StringVarP(&taskDetails, "details", "d", "", "New details")
}

// withTasks opens the store and hands fn a task service for the current project.
func withTasks(fn func(*task.Service) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.tasks()
	if err != nil {
		return err
	}
	return fn(svc)
}

func parseTaskID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	d := task.Draft{Name: args[0], Details: taskDetails}
	if cmd.Flags().Changed("parent") {
		parent := taskParent
		d.ParentID = &parent
	}

	return withTasks(func(svc *task.Service) error {
		t, err := svc.Add(commandContext(cmd), d)
		if t == nil {
			return err
		}
		ui.Ok(fmt.Sprintf("Added #%d %s", t.ID, ui.Accent.Render(t.Name)))
		return reportPostHook(err)
	})
}

func runTaskList(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	root, err := a.projectRoot()
	if err != nil {
		return err
	}
	tasks, err := task.NewStore(a.db.Conn()).List(root, taskAll)
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println()
		fmt.Println(ui.Muted.Render("  No tasks."))
		fmt.Println()
		fmt.Printf("  Add one: %s\n", ui.Accent.Render(`tasky task add "something"`))
		fmt.Println()
		return nil
	}

	fmt.Println()
	for _, t := range tasks {
		icon := ui.Muted.Render(ui.IconTask)
		name := t.Name
		if t.Done {
			icon = ui.Success.Render(ui.IconDone)
			name = ui.Muted.Render(name)
		}
		indent := ""
		if t.ParentID != nil {
			indent = "  "
		}
		fmt.Printf("  %s%s %s %s\n", indent, icon, ui.Muted.Render(fmt.Sprintf("#%-3d", t.ID)), name)
		if t.Details != "" {
			fmt.Printf("  %s      %s\n", indent, ui.Muted.Render(t.Details))
		}
	}
	fmt.Println()
	return nil
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	return runTaskTransition(commandContext(cmd), args[0], "Completed", (*task.Service).Complete)
}

func runTaskReopen(cmd *cobra.Command, args []string) error {
	return runTaskTransition(commandContext(cmd), args[0], "Reopened", (*task.Service).Reopen)
}

func runTaskRemove(cmd *cobra.Command, args []string) error {
	return runTaskTransition(commandContext(cmd), args[0], "Removed", (*task.Service).Remove)
}

func runTaskTransition(ctx context.Context, arg, verb string, op func(*task.Service, context.Context, int) (*task.Task, error)) error {
	id, err := parseTaskID(arg)
	if err != nil {
		return err
	}
	return withTasks(func(svc *task.Service) error {
		t, err := op(svc, ctx, id)
		if t == nil {
			return err
		}
		ui.Ok(fmt.Sprintf("%s #%d %s", verb, t.ID, t.Name))
		return reportPostHook(err)
	})
}

// changesFromFlags maps the flags the user actually set onto task.Changes.
func changesFromFlags(flags *pflag.FlagSet) task.Changes {
	var c task.Changes
	flags.Visit(func(f *pflag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "name":
			c.Name = &v
		case "details":
			c.Details = &v
		}
	})
	return c
}

func runTaskUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	c := changesFromFlags(cmd.Flags())
	if c.Empty() {
		return fmt.Errorf("nothing to update (pass --name and/or --details)")
	}

	return withTasks(func(svc *task.Service) error {
		t, err := svc.Update(commandContext(cmd), id, c)
		if t == nil {
			return err
		}
		ui.Ok(fmt.Sprintf("Updated #%d %s", t.ID, t.Name))
		return reportPostHook(err)
	})
}

func readDrafts(arg string, stdin io.Reader) ([]task.Draft, error) {
	var data []byte
	var err error
	if arg == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(arg)
	}
	if err != nil {
		return nil, fmt.Errorf("reading tasks: %w", err)
	}

	var drafts []task.Draft
	if err := json.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("parsing tasks: expected a JSON array of tasks: %w", err)
	}
	return drafts, nil
}

func runTaskImport(cmd *cobra.Command, args []string) error {
	drafts, err := readDrafts(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	return withTasks(func(svc *task.Service) error {
		ids, err := svc.Import(commandContext(cmd), drafts)
		if ids == nil {
			return err
		}
		ui.Ok(fmt.Sprintf("Imported %d tasks", len(ids)))
		return reportPostHook(err)
	})
}
