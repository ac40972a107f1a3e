package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/scorm-engine/internal/content"
	"github.com/mind-engage/scorm-engine/internal/grading"
)

// SCOImporter persists organization items during package import.
type SCOImporter interface {
	PutSCO(ctx context.Context, sco content.SCO) (int64, error)
}

type packageConfig struct {
	ID      string `json:"id"`
	Title   string `json:"title" validate:"required"`
	Version string `json:"version" validate:"omitempty,oneof=SCORM_1.2 SCORM_1.3 AICC"`

	MaxGrade        float64 `json:"max_grade"`
	GradeMethod     string  `json:"grade_method" validate:"omitempty,oneof=scoes highest average sum"`
	WhatGrade       string  `json:"what_grade" validate:"omitempty,oneof=first last highest average"`
	MaxAttempt      int     `json:"max_attempt" validate:"min=0"`
	ForceCompleted  bool    `json:"force_completed"`
	ForceNewAttempt int     `json:"force_new_attempt" validate:"min=0,max=2"`
	HideBrowse      bool    `json:"hide_browse"`
	LastAttemptLock bool    `json:"last_attempt_lock"`

	CompletionStatusMask *int     `json:"completion_status_mask"`
	CompletionAllSCOs    bool     `json:"completion_all_scos"`
	CompletionScoreMin   *float64 `json:"completion_score_min"`
}

func toConfig(p content.Package) packageConfig {
	return packageConfig{
		ID:                   p.ID,
		Title:                p.Title,
		Version:              p.Version,
		MaxGrade:             p.MaxGrade,
		GradeMethod:          p.GradeMethod,
		WhatGrade:            p.WhatGrade,
		MaxAttempt:           p.MaxAttempt,
		ForceCompleted:       p.ForceCompleted,
		ForceNewAttempt:      p.ForceNewAttempt,
		HideBrowse:           p.HideBrowse,
		LastAttemptLock:      p.LastAttemptLock,
		CompletionStatusMask: p.CompletionStatusMask,
		CompletionAllSCOs:    p.CompletionAllSCOs,
		CompletionScoreMin:   p.CompletionScoreMin,
	}
}

func (c packageConfig) toPackage(id string) content.Package {
	return content.Package{
		ID:                   id,
		Title:                c.Title,
		Version:              c.Version,
		MaxGrade:             c.MaxGrade,
		GradeMethod:          c.GradeMethod,
		WhatGrade:            c.WhatGrade,
		MaxAttempt:           c.MaxAttempt,
		ForceCompleted:       c.ForceCompleted,
		ForceNewAttempt:      c.ForceNewAttempt,
		HideBrowse:           c.HideBrowse,
		LastAttemptLock:      c.LastAttemptLock,
		CompletionStatusMask: c.CompletionStatusMask,
		CompletionAllSCOs:    c.CompletionAllSCOs,
		CompletionScoreMin:   c.CompletionScoreMin,
	}
}

// GetPackageHandler returns the stored configuration of one package.
// GET /packages/{packageID}
func GetPackageHandler(packages content.PackageStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pkg, err := packages.GetPackage(r.Context(), chi.URLParam(r, "packageID"))
		if errors.Is(err, content.ErrPackageNotFound) {
			http.Error(w, "unknown package", 404)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(toConfig(pkg))
	}
}

// PutPackageHandler stores the package configuration.
// PUT /packages/{packageID}
func PutPackageHandler(packages content.PackageStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg packageConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if err := validate.Struct(&cfg); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		if cfg.GradeMethod == "" {
			cfg.GradeMethod = string(grading.MethodHighest)
		}
		if cfg.WhatGrade == "" {
			cfg.WhatGrade = string(grading.GradeHighestAttempt)
		}
		pkg := cfg.toPackage(chi.URLParam(r, "packageID"))
		if err := packages.PutPackage(r.Context(), pkg); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type scoImportRequest struct {
	Organization string `json:"organization"`
	SCOes        []struct {
		Identifier string            `json:"identifier" validate:"required"`
		Parent     string            `json:"parent"`
		Title      string            `json:"title"`
		Launch     string            `json:"launch"`
		SCOType    string            `json:"sco_type"`
		SortOrder  int               `json:"sortorder"`
		Extension  map[string]string `json:"extension"`
	} `json:"scoes" validate:"required,min=1,dive"`
}

// ImportSCOesHandler loads a parsed organization into the content store.
// Items arrive in document order; parents default to the root.
// PUT /packages/{packageID}/scoes
func ImportSCOesHandler(importer SCOImporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		packageID := chi.URLParam(r, "packageID")
		var req scoImportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if err := validate.Struct(&req); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		ids := make([]int64, 0, len(req.SCOes))
		for _, in := range req.SCOes {
			parent := in.Parent
			if parent == "" {
				parent = content.RootParent
			}
			id, err := importer.PutSCO(r.Context(), content.SCO{
				PackageID:    packageID,
				Organization: req.Organization,
				Identifier:   in.Identifier,
				Parent:       parent,
				Title:        in.Title,
				Launch:       in.Launch,
				Type:         in.SCOType,
				SortOrder:    in.SortOrder,
				Extension:    in.Extension,
			})
			if err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			ids = append(ids, id)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"imported": len(ids), "ids": ids})
	}
}
