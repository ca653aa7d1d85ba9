package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"dealroom/internal/app"
	"dealroom/internal/domain"
	"dealroom/internal/guard"
)

// Config for the HTTP API handler.
type Config struct {
	Rooms    *app.Rooms
	BasePath string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"deal deal-42 not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope used across the API.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the deal-room API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	hcfg := huma.DefaultConfig("Deal Room API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerDeals(group, cfg.Rooms)
	registerSetup(group, cfg.Rooms)
	registerAgreements(group, cfg.Rooms)
	registerHots(group, cfg.Rooms)
	registerDocuments(group, cfg.Rooms)
	registerTasks(group, cfg.Rooms)
	registerActivity(group, cfg.Rooms)
	registerGuard(group, cfg.Rooms)
	registerOpenAPI(router, api, basePath)

	startWebhookDispatcher(cfg.Rooms)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "not found"):
		return newAPIError(http.StatusNotFound, "not_found", msg, nil)
	case strings.Contains(lowered, "already exists"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case strings.Contains(lowered, "unknown") || strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func actorOrDefault(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return "api"
	}
	return actor
}

type DealPath struct {
	DealID string `path:"deal_id"`
	Actor  string `header:"X-Actor" required:"false"`
}

type AgreementPath struct {
	DealID      string `path:"deal_id"`
	AgreementID string `path:"agreement_id"`
	Actor       string `header:"X-Actor" required:"false"`
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Deal Room API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerDeals(api huma.API, rooms *app.Rooms) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-deal",
		Method:        http.MethodPost,
		Path:          "/deals",
		Summary:       "Create deal",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateDealRequest `json:"body"`
	}) (*struct {
		Body DealResponse `json:"body"`
	}, error) {
		if input.Body.ID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "id is required", nil)
		}
		st, err := rooms.Create(ctx, input.Body.ID, input.Body.Tenant, input.Body.Property)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DealResponse `json:"body"`
		}{Body: dealResponse(st.Snapshot())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-deals",
		Method:      http.MethodGet,
		Path:        "/deals",
		Summary:     "List deals",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []DealResponse `json:"body"`
	}, error) {
		snaps, err := rooms.Snapshots(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]DealResponse, 0, len(snaps))
		for _, snap := range snaps {
			out = append(out, dealResponse(snap))
		}
		return &struct {
			Body []DealResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-deal",
		Method:      http.MethodGet,
		Path:        "/deals/{deal_id}",
		Summary:     "Get deal",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *DealPath) (*struct {
		Body DealResponse `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DealResponse `json:"body"`
		}{Body: dealResponse(st.Snapshot())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accept-proposal",
		Method:      http.MethodPost,
		Path:        "/deals/{deal_id}/proposal/accept",
		Summary:     "Accept proposal",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *DealPath) (*struct {
		Body DealResponse `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := st.AcceptProposal(ctx, actorOrDefault(input.Actor))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DealResponse `json:"body"`
		}{Body: dealResponse(snap)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-room",
		Method:      http.MethodGet,
		Path:        "/deals/{deal_id}/room",
		Summary:     "Get deal room",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *DealPath) (*struct {
		Body RoomResponse `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RoomResponse `json:"body"`
		}{Body: roomResponse(st.Snapshot(), st.CanHandoff())}, nil
	})
}

func registerSetup(api huma.API, rooms *app.Rooms) {
	huma.Register(api, huma.Operation{
		OperationID: "confirm-setup",
		Method:      http.MethodPost,
		Path:        "/deals/{deal_id}/room/setup",
		Summary:     "Confirm room setup",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DealPath
		Body SetupRequest `json:"body"`
	}) (*struct {
		Body RoomResponse `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := st.ConfirmSetup(ctx, actorOrDefault(input.Actor), planFromSetup(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RoomResponse `json:"body"`
		}{Body: roomResponse(snap, st.CanHandoff())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "generate-legal-pack",
		Method:      http.MethodPost,
		Path:        "/deals/{deal_id}/room/pack",
		Summary:     "Generate legal pack",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *DealPath) (*struct {
		Body RoomResponse `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := st.GenerateLegalPack(ctx, actorOrDefault(input.Actor))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RoomResponse `json:"body"`
		}{Body: roomResponse(snap, st.CanHandoff())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "handoff-to-ops",
		Method:      http.MethodPost,
		Path:        "/deals/{deal_id}/room/handoff",
		Summary:     "Hand off to operations",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *DealPath) (*struct {
		Body DealResponse `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := st.HandoffToOps(ctx, actorOrDefault(input.Actor))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DealResponse `json:"body"`
		}{Body: dealResponse(snap)}, nil
	})
}

func registerAgreements(api huma.API, rooms *app.Rooms) {
	huma.Register(api, huma.Operation{
		OperationID: "list-agreements",
		Method:      http.MethodGet,
		Path:        "/deals/{deal_id}/room/agreements",
		Summary:     "List agreements",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *DealPath) (*struct {
		Body []domain.Agreement `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Agreement `json:"body"`
		}{Body: st.Snapshot().Room.Agreements}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "advance-agreement",
		Method:      http.MethodPost,
		Path:        "/deals/{deal_id}/room/agreements/{agreement_id}/advance",
		Summary:     "Advance agreement status one step",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *AgreementPath) (*struct {
		Body RoomResponse `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := st.AdvanceAgreementStatus(ctx, actorOrDefault(input.Actor), input.AgreementID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RoomResponse `json:"body"`
		}{Body: roomResponse(snap, st.CanHandoff())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upload-agreement-version",
		Method:      http.MethodPost,
		Path:        "/deals/{deal_id}/room/agreements/{agreement_id}/versions",
		Summary:     "Upload agreement version",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *AgreementPath) (*struct {
		Body RoomResponse `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := st.UploadAgreementVersion(ctx, actorOrDefault(input.Actor), input.AgreementID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RoomResponse `json:"body"`
		}{Body: roomResponse(snap, st.CanHandoff())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-target-sign-date",
		Method:      http.MethodPut,
		Path:        "/deals/{deal_id}/room/agreements/{agreement_id}/target-sign-date",
		Summary:     "Set agreement target sign date",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		AgreementPath
		Body TargetSignDateRequest `json:"body"`
	}) (*struct {
		Body RoomResponse `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := st.SetTargetSignDate(ctx, actorOrDefault(input.Actor), input.AgreementID, input.Body.Date)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RoomResponse `json:"body"`
		}{Body: roomResponse(snap, st.CanHandoff())}, nil
	})
}

func registerHots(api huma.API, rooms *app.Rooms) {
	huma.Register(api, huma.Operation{
		OperationID: "get-hots",
		Method:      http.MethodGet,
		Path:        "/deals/{deal_id}/room/hots",
		Summary:     "Get heads of terms",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *DealPath) (*struct {
		Body domain.HeadsOfTerms `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.HeadsOfTerms `json:"body"`
		}{Body: st.Snapshot().Room.Hots}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-hots",
		Method:      http.MethodPatch,
		Path:        "/deals/{deal_id}/room/hots",
		Summary:     "Update heads of terms",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DealPath
		Body HotsUpdateRequest `json:"body"`
	}) (*struct {
		Body domain.HeadsOfTerms `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := st.UpdateHots(ctx, actorOrDefault(input.Actor), input.Body.Fields)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.HeadsOfTerms `json:"body"`
		}{Body: snap.Room.Hots}, nil
	})
}

func registerDocuments(api huma.API, rooms *app.Rooms) {
	huma.Register(api, huma.Operation{
		OperationID: "list-documents",
		Method:      http.MethodGet,
		Path:        "/deals/{deal_id}/room/documents",
		Summary:     "List documents",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *DealPath) (*struct {
		Body []domain.FileDoc `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.FileDoc `json:"body"`
		}{Body: st.Snapshot().Room.Documents}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "upload-document",
		Method:        http.MethodPost,
		Path:          "/deals/{deal_id}/room/documents",
		Summary:       "Upload document",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DealPath
		Body UploadDocumentRequest `json:"body"`
	}) (*struct {
		Body []domain.FileDoc `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := st.UploadDocument(ctx, actorOrDefault(input.Actor), input.Body.Name, domain.DocTag(input.Body.Tag))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.FileDoc `json:"body"`
		}{Body: snap.Room.Documents}, nil
	})
}

func registerTasks(api huma.API, rooms *app.Rooms) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/deals/{deal_id}/room/tasks",
		Summary:     "List tasks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DealPath
		Group  string `query:"group" required:"false"`
		Status string `query:"status" required:"false"`
	}) (*struct {
		Body []domain.TaskItem `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		tasks := st.Snapshot().Room.Tasks
		out := make([]domain.TaskItem, 0, len(tasks))
		for _, t := range tasks {
			if input.Group != "" && string(t.Group) != input.Group {
				continue
			}
			if input.Status != "" && string(t.Status) != input.Status {
				continue
			}
			out = append(out, t)
		}
		return &struct {
			Body []domain.TaskItem `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-task",
		Method:        http.MethodPost,
		Path:          "/deals/{deal_id}/room/tasks",
		Summary:       "Add task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DealPath
		Body AddTaskRequest `json:"body"`
	}) (*struct {
		Body []domain.TaskItem `json:"body"`
	}, error) {
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := st.AddTask(ctx, actorOrDefault(input.Actor), domain.TaskItem{
			Title:    input.Body.Title,
			Group:    domain.TaskGroup(input.Body.Group),
			Assignee: input.Body.Assignee,
			DueDate:  input.Body.DueDate,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.TaskItem `json:"body"`
		}{Body: snap.Room.Tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task-status",
		Method:      http.MethodPatch,
		Path:        "/deals/{deal_id}/room/tasks/{task_id}",
		Summary:     "Update task status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DealID string            `path:"deal_id"`
		TaskID string            `path:"task_id"`
		Actor  string            `header:"X-Actor" required:"false"`
		Body   TaskStatusRequest `json:"body"`
	}) (*struct {
		Body []domain.TaskItem `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := st.UpdateTaskStatus(ctx, actorOrDefault(input.Actor), input.TaskID, domain.TaskStatus(input.Body.Status))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.TaskItem `json:"body"`
		}{Body: snap.Room.Tasks}, nil
	})
}

func registerActivity(api huma.API, rooms *app.Rooms) {
	huma.Register(api, huma.Operation{
		OperationID: "list-activity",
		Method:      http.MethodGet,
		Path:        "/deals/{deal_id}/activity",
		Summary:     "List activity, newest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DealPath
		Limit int `query:"limit" required:"false"`
	}) (*struct {
		Body []domain.ActivityItem `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		items := st.Snapshot().Room.Activity
		if input.Limit > 0 && input.Limit < len(items) {
			items = items[:input.Limit]
		}
		return &struct {
			Body []domain.ActivityItem `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-activity",
		Method:        http.MethodPost,
		Path:          "/deals/{deal_id}/activity",
		Summary:       "Add activity item",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DealPath
		Body AddActivityRequest `json:"body"`
	}) (*struct {
		Body []domain.ActivityItem `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := st.AddActivity(ctx, actorOrDefault(input.Actor), domain.ActivityType(input.Body.Type), input.Body.Note)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ActivityItem `json:"body"`
		}{Body: snap.Room.Activity}, nil
	})
}

func registerGuard(api huma.API, rooms *app.Rooms) {
	huma.Register(api, huma.Operation{
		OperationID: "guard-check",
		Method:      http.MethodGet,
		Path:        "/deals/{deal_id}/guard",
		Summary:     "Check navigation guard for a path",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DealPath
		Path string `query:"path"`
	}) (*struct {
		Body GuardResponse `json:"body"`
	}, error) {
		st, err := rooms.Open(ctx, input.DealID)
		if err != nil {
			return nil, handleError(err)
		}
		redirect, ok := guard.Evaluate(st.Snapshot(), input.Path)
		return &struct {
			Body GuardResponse `json:"body"`
		}{Body: GuardResponse{OK: ok, Redirect: redirect}}, nil
	})
}
