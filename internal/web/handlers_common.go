package web

// handlers_common.go holds request decoding shared by the page and API handlers.

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/prism/internal/core"
	"github.com/JonMunkholm/prism/internal/pipeline"
)

// multipartMemory is how much of a multipart form is held in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// formOverhead is the allowance for form fields beyond the file itself.
const formOverhead = 1 << 20

// parseBoolParam parses a boolean query parameter with a default value.
func parseBoolParam(r *http.Request, name string, defaultVal bool) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// runRequest decodes a multipart run submission. The caller must close the
// returned file once the run is done.
//
// Form fields:
//   - file: the dataset (required)
//   - plan: a JSON plan, either {"steps": [...]} or a bare step array
//   - recipe: a YAML recipe, as an uploaded file or a text field
//   - sheet: the xlsx sheet to read
func (s *Server) runRequest(w http.ResponseWriter, r *http.Request) (core.RunRequest, io.Closer, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return core.RunRequest{}, nil, fmt.Errorf("parse form: %w", err)
	}

	plan, err := planFromForm(r)
	if err != nil {
		return core.RunRequest{}, nil, err
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return core.RunRequest{}, nil, core.ErrNoFile
	}
	if err != nil {
		return core.RunRequest{}, nil, fmt.Errorf("read form file: %w", err)
	}

	return core.RunRequest{
		FileName: header.Filename,
		Reader:   file,
		Plan:     plan,
		Sheet:    strings.TrimSpace(r.FormValue("sheet")),
	}, file, nil
}

// planFromForm decodes the plan or recipe of a run submission. With
// neither, the plan is empty and the run only parses and profiles the file.
func planFromForm(r *http.Request) (pipeline.Plan, error) {
	if src := strings.TrimSpace(r.FormValue("plan")); src != "" {
		return pipeline.ParseJSON(strings.NewReader(src))
	}

	if f, _, err := r.FormFile("recipe"); err == nil {
		defer f.Close()
		return pipeline.ParseYAML(f)
	} else if !errors.Is(err, http.ErrMissingFile) {
		return pipeline.Plan{}, fmt.Errorf("read recipe: %w", err)
	}

	if src := strings.TrimSpace(r.FormValue("recipe")); src != "" {
		return pipeline.ParseYAML(strings.NewReader(src))
	}
	return pipeline.Plan{}, nil
}

// RunResponse is the JSON view of a stored run.
type RunResponse struct {
	ID        string            `json:"id"`
	FileName  string            `json:"fileName"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Report    *pipeline.Report  `json:"report"`
	Links     map[string]string `json:"links"`
}

func toResponse(result *core.RunResult) RunResponse {
	base := "/api/runs/" + result.ID
	return RunResponse{
		ID:        result.ID,
		FileName:  result.FileName,
		CreatedAt: result.CreatedAt,
		ExpiresAt: result.ExpiresAt,
		Report:    result.Report,
		Links: map[string]string{
			"self":   base,
			"page":   "/runs/" + result.ID,
			"export": base + "/export",
			"recipe": base + "/recipe",
		},
	}
}
