package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KasthuriRaja-M/Study-Planner-App/internal/config"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/stats"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/tasks"
)

var (
	taskSubject     string
	taskDue         string
	taskPriority    string
	taskDescription string
	taskTitle       string

	taskListFilter string
	taskListLong    bool

	exportFormat string
	exportOutput string

	clearForce bool
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage study tasks",
	}
	cmd.AddCommand(newTasksAddCmd())
	cmd.AddCommand(newTasksListCmd())
	cmd.AddCommand(newTasksDoneCmd())
	cmd.AddCommand(newTasksRemoveCmd())
	cmd.AddCommand(newTasksEditCmd())
	cmd.AddCommand(newTasksExportCmd())
	cmd.AddCommand(newTasksClearCmd())
	return cmd
}

func addTaskFieldFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&taskSubject, "subject", "", "subject the task belongs to")
	cmd.Flags().StringVar(&taskDue, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&taskPriority, "priority", string(tasks.PriorityMedium), "priority (low, medium, high)")
	cmd.Flags().StringVar(&taskDescription, "description", "", "longer description")
}

func newTasksAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTasksAddCmd,
	}
	addTaskFieldFlags(cmd)
	return cmd
}

func runTasksAddCmd(cmd *cobra.Command, args []string) error {
	return withTaskList(func(ctx context.Context, list *tasks.List) error {
		task, err := list.Add(ctx, tasks.Draft{
			Title:       strings.Join(args, " "),
			Subject:     taskSubject,
			DueDate:     taskDue,
			Priority:    taskPriority,
			Description: taskDescription,
		})
		if err != nil {
			return fmt.Errorf("failed to add task: %w", err)
		}
		return writeLine(cmd.OutOrStdout(), fmt.Sprintf("Added %s %s", shortID(task.ID), task.Title))
	})
}

func newTasksListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE:    runTasksListCmd,
	}
	cmd.Flags().StringVar(&taskListFilter, "filter", string(tasks.FilterAll), "filter (all, pending, completed)")
	cmd.Flags().BoolVar(&taskListLong, "long", false, "show descriptions and full ids")
	return cmd
}

func runTasksListCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "filter", &taskListFilter, fileCfg.Tasks.Filter)
	filter, err := tasks.ParseFilter(taskListFilter)
	if err != nil {
		return fmt.Errorf("invalid --filter value: %w", err)
	}
	return withTaskList(func(ctx context.Context, list *tasks.List) error {
		all, err := list.Load(ctx)
		if err != nil {
			return corruptListError(err)
		}
		return writeTaskTable(cmd.OutOrStdout(), filter.Apply(all), tasks.Summarize(all), taskListLong)
	})
}

func writeTaskTable(w io.Writer, list []tasks.Task, summary tasks.Summary, long bool) error {
	if len(list) == 0 {
		return writeLine(w, "No tasks found.")
	}
	headers := []string{"ID", "Done", "Title", "Subject", "Due", "Priority"}
	if long {
		headers = append(headers, "Description")
	}
	rows := make([][]string, 0, len(list))
	for _, task := range list {
		done := "[ ]"
		if task.Completed {
			done = "[x]"
		}
		id := shortID(task.ID)
		if long {
			id = task.ID
		}
		row := []string{id, done, task.Title, task.Subject, tasks.FormatDue(task.DueDate), string(task.Priority)}
		if long {
			row = append(row, task.Description)
		}
		rows = append(rows, row)
	}
	if err := stats.WriteTable(w, headers, rows, nil); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return writeLine(w, fmt.Sprintf("\n%d tasks, %d pending, %d completed (%d%%)",
		summary.Total, summary.Pending, summary.Completed, summary.CompletionRate))
}

func newTasksDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task between pending and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTaskList(func(ctx context.Context, list *tasks.List) error {
				task, err := findTask(ctx, list, args[0])
				if err != nil {
					return err
				}
				toggled, err := list.Toggle(ctx, task.ID)
				if err != nil {
					return fmt.Errorf("failed to update task: %w", err)
				}
				state := "pending"
				if toggled.Completed {
					state = "completed"
				}
				return writeLine(cmd.OutOrStdout(), fmt.Sprintf("%s %s is %s", shortID(toggled.ID), toggled.Title, state))
			})
		},
	}
}

func newTasksRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTaskList(func(ctx context.Context, list *tasks.List) error {
				task, err := findTask(ctx, list, args[0])
				if err != nil {
					return err
				}
				if err := list.Delete(ctx, task.ID); err != nil {
					return fmt.Errorf("failed to delete task: %w", err)
				}
				return writeLine(cmd.OutOrStdout(), fmt.Sprintf("Deleted %s %s", shortID(task.ID), task.Title))
			})
		},
	}
}

func newTasksEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit task fields",
		Args:  cobra.ExactArgs(1),
		RunE:  runTasksEditCmd,
	}
	cmd.Flags().StringVar(&taskTitle, "title", "", "new title")
	addTaskFieldFlags(cmd)
	return cmd
}

func runTasksEditCmd(cmd *cobra.Command, args []string) error {
	return withTaskList(func(ctx context.Context, list *tasks.List) error {
		task, err := findTask(ctx, list, args[0])
		if err != nil {
			return err
		}
		applyStringFlag(cmd, "title", &task.Title, taskTitle)
		applyStringFlag(cmd, "subject", &task.Subject, taskSubject)
		applyStringFlag(cmd, "due", &task.DueDate, taskDue)
		applyStringFlag(cmd, "description", &task.Description, taskDescription)
		if cmd.Flags().Changed("priority") {
			task.Priority = tasks.Priority(taskPriority)
		}
		updated, err := list.Update(ctx, task)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return writeLine(cmd.OutOrStdout(), fmt.Sprintf("Updated %s %s", shortID(updated.ID), updated.Title))
	})
}

func newTasksExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks as YAML or JSON",
		Args:  cobra.NoArgs,
		RunE:  runTasksExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", "yaml", "output format (yaml, json)")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func runTasksExportCmd(cmd *cobra.Command, _ []string) error {
	return withTaskList(func(ctx context.Context, list *tasks.List) error {
		all, err := list.Load(ctx)
		if err != nil {
			return corruptListError(err)
		}
		if exportOutput == "" {
			return tasks.Export(cmd.OutOrStdout(), all, exportFormat)
		}
		file, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOutput, err)
		}
		if err := tasks.Export(file, all, exportFormat); err != nil {
			_ = file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", exportOutput, err)
		}
		logErrf("Wrote %d tasks to %s\n", len(all), exportOutput)
		return nil
	})
}

func newTasksClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every task, including an unreadable task list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !clearForce {
				return fmt.Errorf("refusing to delete all tasks without --force")
			}
			return withTaskList(func(ctx context.Context, list *tasks.List) error {
				if err := list.Clear(ctx); err != nil {
					return fmt.Errorf("failed to clear tasks: %w", err)
				}
				return writeLine(cmd.OutOrStdout(), "All tasks deleted.")
			})
		},
	}
	cmd.Flags().BoolVar(&clearForce, "force", false, "confirm deleting every task")
	return cmd
}

func withTaskList(fn func(ctx context.Context, list *tasks.List) error) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	return fn(context.Background(), tasks.NewList(st))
}

func findTask(ctx context.Context, list *tasks.List, id string) (tasks.Task, error) {
	all, err := list.Load(ctx)
	if err != nil {
		return tasks.Task{}, corruptListError(err)
	}
	task, err := tasks.Find(all, id)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func corruptListError(err error) error {
	return fmt.Errorf("failed to load tasks: %w (run `studyplanner tasks clear --force` to reset)", err)
}

func applyStringFlag(cmd *cobra.Command, name string, target *string, value string) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeLine(w io.Writer, line string) error {
	if _, err := fmt.Fprintln(w, line); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
