package cmd

import (
	"fmt"

	"github.com/rnwolfe/tasky/internal/ui"
	"github.com/spf13/cobra"
)

var projectScanDepth int

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"proj"},
	Short:   "Register and manage tasky projects",
	RunE:    runProjectList,
}

var projectInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create .tasky in a directory and register it (fires project.post_init)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProjectInit,
}

var projectForgetCmd = &cobra.Command{
	Use:   "forget <name|path>",
	Short: "Unregister a project (fires project.post_forget); files are kept",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectForget,
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered projects",
	RunE:    runProjectList,
}

var projectScanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Register every directory below dir that already has a .tasky directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProjectScan,
}

func init() {
	projectCmd.AddCommand(projectInitCmd)
	projectCmd.AddCommand(projectForgetCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectScanCmd)

	projectScanCmd.Flags().IntVar(&projectScanDepth, "depth", 3, "Maximum directory depth to scan")
}

func argOrEmpty(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func runProjectInit(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.projects.Init(commandContext(cmd), a.runner, argOrEmpty(args))
	if p == nil {
		return err
	}
	ui.Ok(fmt.Sprintf("Registered %s", ui.Accent.Render(p.Name)))
	fmt.Printf("  %s\n", ui.Muted.Render(p.Path))
	ui.Tip(fmt.Sprintf("add hooks with %s", ui.Accent.Render("tasky hook init")))
	return reportPostHook(err)
}

func runProjectForget(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.projects.Forget(commandContext(cmd), a.runner, args[0])
	if p == nil {
		return err
	}
	ui.Ok(fmt.Sprintf("Forgot %s", ui.Accent.Render(p.Name)))
	return reportPostHook(err)
}

func runProjectList(_ *cobra.Command, _ []string) error {
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
		fmt.Println()
		fmt.Println(ui.Muted.Render("  No projects registered."))
		fmt.Println()
		fmt.Printf("  Start one: %s\n", ui.Accent.Render("tasky project init"))
		fmt.Println()
		return nil
	}

	fmt.Println()
	for _, p := range projects {
		fmt.Printf("  %s %-20s %s\n", ui.Success.Render("●"), ui.Accent.Render(p.Name), ui.Muted.Render(p.Path))
	}
	fmt.Println()
	return nil
}

func runProjectScan(_ *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	added, err := a.projects.Scan(argOrEmpty(args), projectScanDepth)
	if err != nil {
		return err
	}
	if len(added) == 0 {
		ui.Inf("No new projects found.")
		return nil
	}
	for _, p := range added {
		ui.Ok(fmt.Sprintf("Registered %s %s", ui.Accent.Render(p.Name), ui.Muted.Render(p.Path)))
	}
	return nil
}
