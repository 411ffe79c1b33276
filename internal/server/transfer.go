package server

import (
	"io"
	"net/http"

	"github.com/saveurhq/tastebook/internal/export"
	apperrors "github.com/saveurhq/tastebook/internal/platform/errors"
	"github.com/saveurhq/tastebook/internal/platform/requestctx"
	"github.com/saveurhq/tastebook/internal/recipe"
	"github.com/saveurhq/tastebook/internal/server/httpx"
	"github.com/saveurhq/tastebook/internal/storage"
)

// maxImportBytes caps collection import payloads.
const maxImportBytes = 4 << 20

func (s *Server) handleExportRecipe(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	loaded, err := s.loadVisibleRecipe(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	s.writeExport(w, format, []recipe.Recipe{loaded}, true)
}

func (s *Server) handleExportCollection(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	ctx := httpx.RequestContext(r)
	userID := requestctx.UserIDFromContext(ctx)
	var recipes []recipe.Recipe
	token := ""
	for {
		page, err := s.store.ListRecipes(ctx, storage.RecipeFilter{
			ViewerID:  userID,
			OwnerID:   userID,
			PageToken: token,
		})
		if err != nil {
			httpx.WriteError(w, storageError(err))
			return
		}
		recipes = append(recipes, page.Recipes...)
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}

	s.writeExport(w, format, recipes, false)
}

func (s *Server) writeExport(w http.ResponseWriter, format export.Format, recipes []recipe.Recipe, single bool) {
	var body []byte
	var err error
	switch format {
	case export.FormatJSON:
		if single && len(recipes) == 1 {
			body, err = export.RecipeJSON(recipes[0])
		} else {
			body, err = export.CollectionJSON(recipes, s.now)
		}
	case export.FormatMarkdown:
		body = []byte(export.CollectionMarkdown(recipes))
	case export.FormatHTML:
		var html string
		html, err = export.CollectionHTML(recipes)
		body = []byte(html)
	}
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type importResponse struct {
	Imported int          `json:"imported"`
	Skipped  []importSkip `json:"skipped,omitempty"`
}

type importSkip struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func (s *Server) handleImportCollection(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		httpx.WriteError(w, apperrors.Wrap(apperrors.CodeImportInvalidPayload, "read import payload", err))
		return
	}

	ctx := httpx.RequestContext(r)
	result, err := export.ImportCollection(payload, requestctx.UserIDFromContext(ctx), s.now, s.idGenerator)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	// One transaction so a failure never leaves a half-applied import.
	if err := s.store.CreateRecipes(ctx, result.Imported); err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}

	response := importResponse{Imported: len(result.Imported)}
	for _, skip := range result.Skipped {
		response.Skipped = append(response.Skipped, importSkip{Index: skip.Index, Reason: skip.Reason})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, response)
}
