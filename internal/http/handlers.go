package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragnchat/internal/chat"
	"github.com/fyrsmithlabs/ragnchat/internal/repository"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleStatus reports backend health and the number of ingested
// repositories. A failing backend degrades the status but still answers 200.
func (s *Server) handleStatus(c echo.Context) error {
	ctx := c.Request().Context()
	resp := StatusResponse{
		Status:   "ok",
		Version:  s.config.Version,
		Services: map[string]string{"vectorstore": "ok"},
		Counts:   StatusCounts{Repositories: CountRepositories(ctx, s.services.VectorStore())},
	}
	if err := s.services.VectorStore().Health(ctx); err != nil {
		s.logger.Warn(ctx, "vector store unhealthy", zap.Error(err))
		resp.Status = "degraded"
		resp.Services["vectorstore"] = "unavailable"
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePing(c echo.Context) error {
	var req v1.PingRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	if err := v1.ValidatePing(req.Ping); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v1.PingResponse{Ping: *req.Ping, Pong: v1.Reverse(*req.Ping)})
}

func (s *Server) handleVectorize(c echo.Context) error {
	repo, err := bindRepository(c)
	if err != nil {
		return err
	}
	ref, err := repository.ParseRef(repo)
	if err != nil {
		return err
	}

	result, err := s.services.Repository().VectorizeWithProgress(c.Request().Context(), ref, nil)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v1.VectorizeResponse{
		Status:         v1.StatusSuccess,
		ProcessedFiles: result.ProcessedFiles,
		Owner:          result.Owner,
		Repo:           result.Repo,
		Branch:         result.Branch,
	})
}

func (s *Server) handleList(c echo.Context) error {
	namespaces, err := s.services.VectorStore().ListNamespaces(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, namespaces)
}

func (s *Server) handleDelete(c echo.Context) error {
	repo, err := bindRepository(c)
	if err != nil {
		return err
	}
	ref, err := repository.ParseRef(repo)
	if err != nil {
		return err
	}

	ns := ref.Namespace()
	if err := s.services.VectorStore().DeleteNamespace(c.Request().Context(), ns); err != nil {
		if isNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "Repository namespace not found").SetInternal(err)
		}
		return err
	}
	return c.JSON(http.StatusOK, v1.DeleteResponse{Status: v1.StatusSuccess, Repository: ns})
}

func (s *Server) handleChat(c echo.Context) error {
	var req v1.ChatRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	if err := v1.ValidatePrompt(req.Prompt); err != nil {
		return err
	}

	reply, err := s.services.Chat().Answer(c.Request().Context(), chat.Request{
		Prompt:     *req.Prompt,
		Repository: req.Repository,
		Context:    req.Context,
	})
	if err != nil {
		if isNotFound(err) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
		}
		return err
	}
	return c.JSON(http.StatusOK, v1.ChatResponse{Response: reply})
}

// bindRepository reads the repository field from the JSON body, falling
// back to the query string.
func bindRepository(c echo.Context) (string, error) {
	var req v1.RepositoryRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return "", errInvalidBody
		}
	}
	repo := strings.TrimSpace(req.Repository)
	if repo == "" {
		repo = strings.TrimSpace(c.QueryParam("repository"))
	}
	if err := v1.ValidateRepository(repo); err != nil {
		return "", err
	}
	if len([]rune(repo)) > v1.MaxRepositoryLength {
		return "", v1.Validationf("Repository must not exceed %d characters", v1.MaxRepositoryLength)
	}
	return repo, nil
}
