package sqlstore

import (
	"database/sql"
	"encoding/json"

	"github.com/mind-engage/scorm-engine/pkg/gradesync/gradesync"
)

type Store struct{ DB *sql.DB }

func (s *Store) GetPackageInfo(id string) (gradesync.PackageInfo, error) {
	var p gradesync.PackageInfo
	err := s.DB.QueryRow(`SELECT id, title, max_grade FROM scorm_packages WHERE id=$1`, id).
		Scan(&p.ID, &p.Title, &p.MaxGrade)
	return p, err
}

func (s *Store) GetLink(packageID string) (gradesync.Link, error) {
	var link gradesync.Link
	var scopes []byte
	err := s.DB.QueryRow(`
		SELECT package_id, platform_issuer, deployment_id, context_id, resource_link_id, lineitems_url, scopes
		FROM ags_links WHERE package_id=$1`, packageID).
		Scan(&link.PackageID, &link.PlatformIssuer, &link.DeploymentID, &link.ContextID, &link.ResourceLinkID, &link.LineItemsURL, &scopes)
	if err != nil {
		return gradesync.Link{}, err
	}
	_ = json.Unmarshal(scopes, &link.Scopes)
	return link, nil
}

// PutLink records the AGS coordinates seen at LTI launch.
func (s *Store) PutLink(link gradesync.Link) error {
	scopes, _ := json.Marshal(link.Scopes)
	_, err := s.DB.Exec(`
		INSERT INTO ags_links (package_id, platform_issuer, deployment_id, context_id, resource_link_id, lineitems_url, scopes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (package_id)
		DO UPDATE SET
			platform_issuer=$2, deployment_id=$3, context_id=$4, resource_link_id=$5,
			lineitems_url=$6, scopes=$7, updated_at=CURRENT_TIMESTAMP`,
		link.PackageID, link.PlatformIssuer, link.DeploymentID, link.ContextID, link.ResourceLinkID, link.LineItemsURL, string(scopes))
	return err
}

func (s *Store) UpsertLineItem(li gradesync.SyncLineItem) (gradesync.SyncLineItem, error) {
	err := s.DB.QueryRow(`
		INSERT INTO ags_lineitems (package_id, platform_issuer, deployment_id, context_id, resource_link_id, label, score_max, line_item_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (package_id, platform_issuer, deployment_id, context_id, resource_link_id)
		DO UPDATE SET
			label=EXCLUDED.label,
			score_max=EXCLUDED.score_max,
			line_item_url=EXCLUDED.line_item_url,
			updated_at=CURRENT_TIMESTAMP
		RETURNING id`,
		li.PackageID, li.PlatformIssuer, li.DeploymentID, li.ContextID, li.ResourceLinkID, li.Label, li.ScoreMax, li.LineItemURL).
		Scan(&li.ID)
	return li, err
}

func (s *Store) FindLineItem(packageID, issuer, dep, ctxID, rlID string) (gradesync.SyncLineItem, error) {
	var li gradesync.SyncLineItem
	err := s.DB.QueryRow(`
		SELECT id, package_id, platform_issuer, deployment_id, context_id, resource_link_id, label, score_max, line_item_url
		FROM ags_lineitems
		WHERE package_id=$1 AND platform_issuer=$2 AND deployment_id=$3 AND context_id=$4 AND resource_link_id=$5`,
		packageID, issuer, dep, ctxID, rlID).
		Scan(&li.ID, &li.PackageID, &li.PlatformIssuer, &li.DeploymentID, &li.ContextID, &li.ResourceLinkID, &li.Label, &li.ScoreMax, &li.LineItemURL)
	return li, err
}

func (s *Store) GetPlatformUserID(issuer, localUserID string) (string, error) {
	var sub string
	err := s.DB.QueryRow(`SELECT platform_sub FROM ags_user_map WHERE platform_issuer=$1 AND local_user_id=$2`,
		issuer, localUserID).Scan(&sub)
	return sub, err
}

func (s *Store) MarkSyncPending(packageID, userID string) error {
	_, err := s.DB.Exec(`
		INSERT INTO grade_sync_status (package_id, user_id, status, retries, updated_at)
		VALUES ($1,$2,'pending',0,CURRENT_TIMESTAMP)
		ON CONFLICT (package_id, user_id)
		DO UPDATE SET status='pending', updated_at=CURRENT_TIMESTAMP`,
		packageID, userID)
	return err
}

func (s *Store) MarkSyncOK(packageID, userID string) error {
	_, err := s.DB.Exec(`
		UPDATE grade_sync_status
		   SET status='ok', last_error=NULL, updated_at=CURRENT_TIMESTAMP
		 WHERE package_id=$1 AND user_id=$2`, packageID, userID)
	return err
}

func (s *Store) MarkSyncFailed(packageID, userID, lastErr string) error {
	_, err := s.DB.Exec(`
		INSERT INTO grade_sync_status (package_id, user_id, status, retries, last_error, updated_at)
		VALUES ($1,$2,'failed',1,$3,CURRENT_TIMESTAMP)
		ON CONFLICT (package_id, user_id)
		DO UPDATE SET
			status='failed',
			retries=grade_sync_status.retries+1,
			last_error=$3,
			updated_at=CURRENT_TIMESTAMP`,
		packageID, userID, lastErr)
	return err
}
