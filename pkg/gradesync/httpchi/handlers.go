package httpchi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mind-engage/scorm-engine/pkg/gradesync/gradesync"
)

// LinkStore persists AGS launch coordinates. *sqlstore.Store satisfies it.
type LinkStore interface {
	PutLink(link gradesync.Link) error
}

type API struct {
	Syncer *gradesync.Syncer
	Links  LinkStore
}

func (a *API) Routes(r chi.Router) {
	r.Post("/lti/gradesync/link", a.postLink)
	r.Post("/lti/gradesync/resync", a.postResync)
}

type linkReq struct {
	PackageID                                       string `json:"package_id"`
	Issuer, DeploymentID, ContextID, ResourceLinkID string
	LineItemsURL                                    string   `json:"lineitems_url"`
	Scopes                                          []string `json:"scopes"`
}

// postLink records the AGS coordinates seen at an LTI launch and ensures
// the platform line item exists for the package.
func (a *API) postLink(w http.ResponseWriter, r *http.Request) {
	var req linkReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.PackageID == "" {
		http.Error(w, "package_id required", 400)
		return
	}
	link := gradesync.Link{
		PackageID: req.PackageID, PlatformIssuer: req.Issuer,
		DeploymentID: req.DeploymentID, ContextID: req.ContextID,
		ResourceLinkID: req.ResourceLinkID, LineItemsURL: req.LineItemsURL,
		Scopes: req.Scopes,
	}
	if err := a.Links.PutLink(link); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if _, err := a.Syncer.EnsureLineItem(link); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type resyncReq struct {
	PackageID string `json:"package_id"`
	UserID    string `json:"user_id"`
	Grade     *float64
}

func (a *API) postResync(w http.ResponseWriter, r *http.Request) {
	var req resyncReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.PackageID == "" || req.UserID == "" {
		http.Error(w, "package_id and user_id required", 400)
		return
	}
	if err := a.Syncer.PushGrade(r.Context(), req.PackageID, req.UserID, req.Grade); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
