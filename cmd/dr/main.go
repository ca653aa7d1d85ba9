package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dealroom/internal/app"
	"dealroom/internal/config"
	"dealroom/internal/domain"
	"dealroom/internal/guard"
	"dealroom/internal/migrate"
	"dealroom/internal/persist"
	"dealroom/internal/server"
	"dealroom/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "dr",
	Short: "Deal room CLI",
	Long: `dr tracks a commercial letting deal from proposal to operations hand-off.
A deal starts as a proposal. Once accepted, its deal room opens: confirm the
service setup, generate the legal pack, push each agreement through review to
signature, keep heads of terms and documents current, and work the task list.
When every agreement is signed and legal tasks are done, hand off to ops.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := persist.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("DEALROOM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor", "local-user", "actor name recorded on activity")
	rootCmd.PersistentFlags().String("deal", "", "deal id (overrides config default)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor", rootCmd.PersistentFlags().Lookup("actor"))
	_ = viper.BindPFlag("deal", rootCmd.PersistentFlags().Lookup("deal"))
}

func registerCommands() {
	rootCmd.AddCommand(dealCmd())
	rootCmd.AddCommand(roomCmd())
	rootCmd.AddCommand(agreementCmd())
	rootCmd.AddCommand(hotsCmd())
	rootCmd.AddCommand(docCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(guardCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func dealCmd() *cobra.Command {
	deal := &cobra.Command{Use: "deal", Short: "Manage deals"}
	deal.AddCommand(dealCreateCmd())
	deal.AddCommand(dealListCmd())
	deal.AddCommand(dealShowCmd())
	deal.AddCommand(dealAcceptCmd())
	return deal
}

func dealCreateCmd() *cobra.Command {
	var id, tenant, property string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a deal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRooms(cmd.Context(), func(ctx context.Context, rooms *app.Rooms) error {
				st, err := rooms.Create(ctx, id, tenant, property)
				if err != nil {
					return err
				}
				return printJSONOrTable(st.Snapshot().Deal)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "deal id")
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant name")
	cmd.Flags().StringVar(&property, "property", "", "property address")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func dealListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRooms(cmd.Context(), func(ctx context.Context, rooms *app.Rooms) error {
				snaps, err := rooms.Snapshots(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(snaps)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Tenant", "Property", "Stage", "Proposal", "Room"})
				for _, snap := range snaps {
					tw.AppendRow(table.Row{
						snap.Deal.ID, snap.Deal.Tenant, snap.Deal.Property,
						snap.Deal.Stage, snap.Deal.ProposalStatus, snap.Room.Status,
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func dealShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a deal with its room",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				return printJSONOrTable(st.Snapshot())
			})
		},
	}
	return cmd
}

func dealAcceptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accept",
		Short: "Accept the proposal and open the deal room",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				snap, err := st.AcceptProposal(ctx, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(snap.Deal)
			})
		},
	}
	return cmd
}

func roomCmd() *cobra.Command {
	room := &cobra.Command{
		Use:   "room",
		Short: "Manage the deal room",
		Long:  "The room carries everything after proposal acceptance: the service plan, agreements, heads of terms, documents, tasks, and the activity trail.",
	}
	room.AddCommand(roomShowCmd())
	room.AddCommand(roomSetupCmd())
	room.AddCommand(roomPackCmd())
	room.AddCommand(roomHandoffCmd())
	return room
}

func roomShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the deal room",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				snap := st.Snapshot()
				if viper.GetBool("json") {
					return printJSON(snap.Room)
				}
				fmt.Printf("Deal: %s  Status: %s  Can hand off: %v\n", snap.Deal.ID, snap.Room.Status, st.CanHandoff())
				fmt.Printf("Agreements: %d  Documents: %d  Tasks: %d  HoTs: v%d\n",
					len(snap.Room.Agreements), len(snap.Room.Documents), len(snap.Room.Tasks), snap.Room.Hots.Version)
				return nil
			})
		},
	}
	return cmd
}

func roomSetupCmd() *cobra.Command {
	var dealType string
	var include, exclude []string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Confirm room setup from the configured service template",
		Long:  "Builds the agreement plan from the service template for the given deal type, applies --include/--exclude overrides, and confirms setup. Locked services ignore overrides.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				dt := domain.DealType(dealType)
				services := st.Config.ServicesFor(dt)
				if len(services) == 0 {
					return fmt.Errorf("no service template for deal type %s", dealType)
				}
				applyOverrides(services, include, true)
				applyOverrides(services, exclude, false)
				snap, err := st.ConfirmSetup(ctx, actor(), domain.AgreementPlan{DealType: dt, Services: services})
				if err != nil {
					return err
				}
				return printJSONOrTable(snap.Room.Plan)
			})
		},
	}
	cmd.Flags().StringVar(&dealType, "deal-type", "all_inclusive", "deal type (all_inclusive, bolt_on)")
	cmd.Flags().StringSliceVar(&include, "include", nil, "service names to include")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "service names to exclude")
	return cmd
}

func applyOverrides(services []domain.PlanService, names []string, included bool) {
	for _, name := range names {
		for i := range services {
			if services[i].Name != name || services[i].Locked {
				continue
			}
			services[i].Included = included
		}
	}
}

func roomPackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Generate the legal pack from the confirmed plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				snap, err := st.GenerateLegalPack(ctx, actor())
				if err != nil {
					return err
				}
				if snap.Room.Status != domain.RoomContractsPending {
					fmt.Println("no plan confirmed yet; run dr room setup first")
					return nil
				}
				return printJSONOrTable(snap.Room.Agreements)
			})
		},
	}
	return cmd
}

func roomHandoffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handoff",
		Short: "Hand the deal off to operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				if !st.CanHandoff() {
					fmt.Println("hand-off gate not satisfied: all agreements must be signed and legal tasks done")
					return nil
				}
				snap, err := st.HandoffToOps(ctx, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(snap.Deal)
			})
		},
	}
	return cmd
}

func agreementCmd() *cobra.Command {
	agr := &cobra.Command{
		Use:   "agreement",
		Short: "Manage agreements",
		Long:  "Agreements flow drafting -> in_review -> with_legal -> ready_to_sign -> signed, one step at a time. Signed is final.",
	}
	agr.AddCommand(agreementListCmd())
	agr.AddCommand(agreementAdvanceCmd())
	agr.AddCommand(agreementUploadCmd())
	agr.AddCommand(agreementSignDateCmd())
	return agr
}

func agreementListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agreements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				agreements := st.Snapshot().Room.Agreements
				if viper.GetBool("json") {
					return printJSON(agreements)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Kind", "Status", "Versions", "Target sign"})
				for _, a := range agreements {
					target := ""
					if a.TargetSignDate != nil {
						target = *a.TargetSignDate
					}
					tw.AppendRow(table.Row{a.ID, a.Title, a.Kind, a.Status, len(a.Versions), target})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func agreementAdvanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advance <agreement-id>",
		Short: "Advance an agreement one status step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				snap, err := st.AdvanceAgreementStatus(ctx, actor(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(snap.Room.Agreements)
			})
		},
	}
	return cmd
}

func agreementUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <agreement-id>",
		Short: "Record a new agreement version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				snap, err := st.UploadAgreementVersion(ctx, actor(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(snap.Room.Agreements)
			})
		},
	}
	return cmd
}

func agreementSignDateCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "set-sign-date <agreement-id>",
		Short: "Set or clear an agreement's target sign date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				var ptr *string
				if cmd.Flags().Changed("date") && date != "" {
					ptr = &date
				}
				snap, err := st.SetTargetSignDate(ctx, actor(), args[0], ptr)
				if err != nil {
					return err
				}
				return printJSONOrTable(snap.Room.Agreements)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "target sign date (YYYY-MM-DD, empty clears)")
	return cmd
}

func hotsCmd() *cobra.Command {
	hots := &cobra.Command{Use: "hots", Short: "Manage heads of terms"}
	hots.AddCommand(hotsShowCmd())
	hots.AddCommand(hotsSetCmd())
	return hots
}

func hotsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show heads of terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				return printJSONOrTable(st.Snapshot().Room.Hots)
			})
		},
	}
	return cmd
}

func hotsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <Key=Value>...",
		Short: "Update heads of terms fields",
		Long:  "Merges the given fields and bumps the version. Only whitelisted keys apply; anything else is dropped silently.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := map[string]string{}
			for _, arg := range args {
				k, v, ok := strings.Cut(arg, "=")
				if !ok || k == "" {
					return fmt.Errorf("expected Key=Value, got %q", arg)
				}
				fields[k] = v
			}
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				snap, err := st.UpdateHots(ctx, actor(), fields)
				if err != nil {
					return err
				}
				return printJSONOrTable(snap.Room.Hots)
			})
		},
	}
	return cmd
}

func docCmd() *cobra.Command {
	doc := &cobra.Command{Use: "doc", Short: "Manage documents"}
	doc.AddCommand(docUploadCmd())
	doc.AddCommand(docListCmd())
	return doc
}

func docUploadCmd() *cobra.Command {
	var name, tag string
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Record a document upload (upserts by name)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				snap, err := st.UploadDocument(ctx, actor(), name, domain.DocTag(tag))
				if err != nil {
					return err
				}
				return printJSONOrTable(snap.Room.Documents)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "document name")
	cmd.Flags().StringVar(&tag, "tag", "other", "tag (ops, fire, insurance, fit_out, floorplan, photo, other)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func docListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				docs := st.Snapshot().Room.Documents
				if viper.GetBool("json") {
					return printJSON(docs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Tag", "Version", "Uploaded"})
				for _, d := range docs {
					tw.AppendRow(table.Row{d.ID, d.Name, d.Tag, d.Version, d.UploadedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage room tasks"}
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskSetStatusCmd())
	return task
}

func taskAddCmd() *cobra.Command {
	var title, group, assignee, due string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				item := domain.TaskItem{
					Title:    title,
					Group:    domain.TaskGroup(group),
					Assignee: assignee,
				}
				if due != "" {
					item.DueDate = &due
				}
				snap, err := st.AddTask(ctx, actor(), item)
				if err != nil {
					return err
				}
				return printJSONOrTable(snap.Room.Tasks)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&group, "group", "internal", "group (legal, ops, landlord, internal)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var group, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				tasks := st.Snapshot().Room.Tasks
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Group", "Status", "Assignee", "Due"})
				for _, t := range tasks {
					if group != "" && string(t.Group) != group {
						continue
					}
					if status != "" && string(t.Status) != status {
						continue
					}
					due := ""
					if t.DueDate != nil {
						due = *t.DueDate
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Group, t.Status, t.Assignee, due})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "group filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func taskSetStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-status <task-id> <status>",
		Short: "Set a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				snap, err := st.UpdateTaskStatus(ctx, actor(), args[0], domain.TaskStatus(args[1]))
				if err != nil {
					return err
				}
				return printJSONOrTable(snap.Room.Tasks)
			})
		},
	}
	return cmd
}

func activityCmd() *cobra.Command {
	act := &cobra.Command{Use: "activity", Short: "View and add activity"}
	act.AddCommand(activityTailCmd())
	act.AddCommand(activityAddCmd())
	return act
}

func activityTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent activity, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				items := st.Snapshot().Room.Activity
				if n > 0 && n < len(items) {
					items = items[:n]
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Actor", "Type", "Note"})
				for _, item := range items {
					tw.AppendRow(table.Row{item.TS, item.Actor, item.Type, item.Note})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of items")
	return cmd
}

func activityAddCmd() *cobra.Command {
	var typ, note string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a free-form activity note",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				snap, err := st.AddActivity(ctx, actor(), domain.ActivityType(typ), note)
				if err != nil {
					return err
				}
				return printJSONOrTable(snap.Room.Activity[0])
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "comment", "activity type")
	cmd.Flags().StringVar(&note, "note", "", "note text")
	_ = cmd.MarkFlagRequired("note")
	return cmd
}

func guardCmd() *cobra.Command {
	g := &cobra.Command{Use: "guard", Short: "Navigation guard"}
	g.AddCommand(guardCheckCmd())
	return g
}

func guardCheckCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check where navigation to a path would land",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				snap := st.Snapshot()
				target := path
				if target == "" {
					target = guard.RoomPath(snap.Deal.ID)
				}
				redirect, ok := guard.Evaluate(snap, target)
				if ok {
					fmt.Printf("%s: allowed\n", target)
					return nil
				}
				fmt.Printf("%s: redirect -> %s\n", target, redirect)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "path to check (defaults to the room)")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func configInitCmd() *cobra.Command {
	var dealID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default dealroom.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(dealID)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dealID, "deal", "deal-1", "default deal id")
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate dealroom.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(viper.GetString("workspace")); err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRooms(cmd.Context(), func(ctx context.Context, rooms *app.Rooms) error {
				handler, err := server.New(server.Config{Rooms: rooms, BasePath: basePath})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving deal room API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func actor() string {
	return viper.GetString("actor")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default(viper.GetString("deal"))
	}
	return cfg, nil
}

func withRooms(ctx context.Context, fn func(context.Context, *app.Rooms) error) error {
	workspace := viper.GetString("workspace")
	conn, err := persist.Open(persist.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rooms := app.NewRooms(conn, cfg, log.Default())
	return fn(ctx, rooms)
}

func withStore(ctx context.Context, fn func(context.Context, *store.Store) error) error {
	return withRooms(ctx, func(ctx context.Context, rooms *app.Rooms) error {
		dealID := strings.TrimSpace(viper.GetString("deal"))
		if dealID == "" {
			dealID = rooms.Config.Deal.ID
		}
		if dealID == "" {
			ids, err := rooms.List(ctx)
			if err != nil {
				return err
			}
			if len(ids) == 1 {
				dealID = ids[0]
			}
		}
		if dealID == "" {
			return fmt.Errorf("deal not specified; use --deal or set deal.id in dealroom.yml")
		}
		st, err := rooms.Open(ctx, dealID)
		if err != nil {
			return err
		}
		return fn(ctx, st)
	})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
