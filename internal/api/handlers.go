package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/theirongolddev/spendgrid/internal/authz"
	"github.com/theirongolddev/spendgrid/internal/bulk"
	"github.com/theirongolddev/spendgrid/internal/model"
	"github.com/theirongolddev/spendgrid/internal/reconcile"
)

const (
	maxBodyBytes   = 10 << 20
	auditLimit     = 100
	defaultListMax = 100
	listCeiling    = 1000
)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", reconcile.ErrInvalidRequest, err)
	}
	return nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s required", reconcile.ErrInvalidRequest, field)
	}
	return nil
}

func amount(n json.Number) (int64, bool) {
	v, err := n.Int64()
	return v, err == nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":  true,
		"env": s.cfg.Env,
		"ts":  s.now().UTC(),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFrom(r.Context())
	if !ok {
		writeError(w, "me", authz.ErrUnauthenticated)
		return
	}
	resp := map[string]any{"userId": userID}
	if orgID := r.URL.Query().Get("orgId"); orgID != "" {
		if p, err := s.gate.Require(r.Context(), orgID, authz.SpendRead); err == nil {
			resp["orgId"] = orgID
			resp["role"] = p.Role
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type bulkRequest struct {
	OrgID      string `json:"orgId"`
	PlatformID string `json:"platformId"`
	Rows       []struct {
		Date        *string     `json:"date"`
		AmountCents json.Number `json:"amountCents"`
	} `json:"rows"`
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "bulk", err)
		return
	}
	if err := required("orgId", req.OrgID); err != nil {
		writeError(w, "bulk", err)
		return
	}
	if err := required("platformId", req.PlatformID); err != nil {
		writeError(w, "bulk", err)
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, "bulk", fmt.Errorf("%w: rows required", reconcile.ErrInvalidRequest))
		return
	}

	p, err := s.gate.Require(r.Context(), req.OrgID, authz.SpendWrite)
	if err != nil {
		writeError(w, "bulk", err)
		return
	}

	rows := make([]reconcile.Row, len(req.Rows))
	for i, row := range req.Rows {
		if row.Date == nil {
			writeError(w, "bulk", &reconcile.RowError{Index: i, Reason: reconcile.ReasonInvalidDate})
			return
		}
		cents, ok := amount(row.AmountCents)
		if !ok {
			writeError(w, "bulk", &reconcile.RowError{Index: i, Reason: reconcile.ReasonInvalidAmount})
			return
		}
		rows[i] = reconcile.Row{Date: *row.Date, AmountCents: cents}
	}

	res, err := s.engine.ApplyBatch(r.Context(), p.UserID, req.OrgID, req.PlatformID, rows)
	if err != nil {
		writeError(w, "bulk", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type entryRequest struct {
	OrgID       string      `json:"orgId"`
	PlatformID  string      `json:"platformId"`
	Date        string      `json:"date"`
	AmountCents json.Number `json:"amountCents"`
	Notes       string      `json:"notes"`
	Confirm     string      `json:"confirm"`
}

// validate checks fields shared by create and overwrite and returns the
// parsed amount.
func (req entryRequest) validate() (int64, error) {
	for _, f := range []struct{ name, value string }{
		{"orgId", req.OrgID}, {"platformId", req.PlatformID}, {"date", req.Date},
	} {
		if err := required(f.name, f.value); err != nil {
			return 0, err
		}
	}
	cents, ok := amount(req.AmountCents)
	if !ok {
		return 0, fmt.Errorf("%w: amountCents must be an integer", reconcile.ErrInvalidRequest)
	}
	return cents, nil
}

func (s *Server) handleCreateSpend(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "create spend", err)
		return
	}
	cents, err := req.validate()
	if err != nil {
		writeError(w, "create spend", err)
		return
	}
	p, err := s.gate.Require(r.Context(), req.OrgID, authz.SpendWrite)
	if err != nil {
		writeError(w, "create spend", err)
		return
	}
	day, err := reconcile.ParseDay(req.Date)
	if err != nil {
		writeError(w, "create spend", err)
		return
	}

	entry, err := s.engine.Create(r.Context(), p.UserID, req.OrgID, req.PlatformID, day, cents, req.Notes)
	if err != nil {
		writeError(w, "create spend", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": entry.ID})
}

func (s *Server) handleOverwrite(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "overwrite", err)
		return
	}
	cents, err := req.validate()
	if err != nil {
		writeError(w, "overwrite", err)
		return
	}
	p, err := s.gate.Require(r.Context(), req.OrgID, authz.SpendWrite)
	if err != nil {
		writeError(w, "overwrite", err)
		return
	}
	day, err := reconcile.ParseDay(req.Date)
	if err != nil {
		writeError(w, "overwrite", err)
		return
	}

	id, err := s.engine.Overwrite(r.Context(), p.UserID, req.OrgID, req.PlatformID, day, cents, req.Confirm)
	if err != nil {
		writeError(w, "overwrite", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func listLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultListMax
	}
	return min(n, listCeiling)
}

func (s *Server) handleListSpend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orgID := q.Get("orgId")
	if err := required("orgId", orgID); err != nil {
		writeError(w, "list spend", err)
		return
	}
	if _, err := s.gate.Require(r.Context(), orgID, authz.SpendRead); err != nil {
		writeError(w, "list spend", err)
		return
	}

	entries, err := s.store.ListEntries(r.Context(), orgID, q.Get("platformId"), listLimit(r))
	if err != nil {
		writeError(w, "list spend", err)
		return
	}
	if entries == nil {
		entries = []model.SpendEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type parseResponse struct {
	Rows    []bulk.ParsedRow `json:"rows"`
	Summary bulk.Summary     `json:"summary"`
	Valid   []reconcile.Row  `json:"valid"`
}

// handleParse previews raw pasted text or an uploaded .csv/.xlsx file
// without writing anything.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	orgID, text, err := readParseInput(w, r)
	if err != nil {
		writeError(w, "parse", err)
		return
	}
	if err := required("orgId", orgID); err != nil {
		writeError(w, "parse", err)
		return
	}
	if _, err := s.gate.Require(r.Context(), orgID, authz.SpendWrite); err != nil {
		writeError(w, "parse", err)
		return
	}

	rows := bulk.Parse(text)
	if rows == nil {
		rows = []bulk.ParsedRow{}
	}
	writeJSON(w, http.StatusOK, parseResponse{
		Rows:    rows,
		Summary: bulk.Summarize(rows),
		Valid:   reconcile.RowsFromEntries(bulk.ValidEntries(rows)),
	})
}

// readParseInput accepts a multipart upload (orgId, file), a JSON body
// {orgId, text}, or plain text with orgId in the query string.
func readParseInput(w http.ResponseWriter, r *http.Request) (orgID, text string, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return "", "", fmt.Errorf("%w: %v", reconcile.ErrInvalidRequest, err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return "", "", fmt.Errorf("%w: file required", reconcile.ErrInvalidRequest)
		}
		defer f.Close()
		text, err := bulk.ReadUpload(hdr.Filename, f)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", reconcile.ErrInvalidRequest, err)
		}
		return r.FormValue("orgId"), text, nil

	case "application/json":
		var req struct {
			OrgID string `json:"orgId"`
			Text  string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", "", fmt.Errorf("%w: malformed JSON body: %v", reconcile.ErrInvalidRequest, err)
		}
		return req.OrgID, req.Text, nil

	default:
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", reconcile.ErrInvalidRequest, err)
		}
		return r.URL.Query().Get("orgId"), string(raw), nil
	}
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("orgId")
	if err := required("orgId", orgID); err != nil {
		writeError(w, "audit", err)
		return
	}
	if _, err := s.gate.Require(r.Context(), orgID, authz.SpendRead); err != nil {
		writeError(w, "audit", err)
		return
	}
	logs, err := s.store.ListEditLogs(r.Context(), orgID, auditLimit)
	if err != nil {
		writeError(w, "audit", err)
		return
	}
	if logs == nil {
		logs = []model.EditLog{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"editLogs": logs})
}

func (s *Server) handleListPlatforms(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("orgId")
	if err := required("orgId", orgID); err != nil {
		writeError(w, "list platforms", err)
		return
	}
	if _, err := s.gate.Require(r.Context(), orgID, authz.SpendRead); err != nil {
		writeError(w, "list platforms", err)
		return
	}
	list, err := s.platforms.List(r.Context(), orgID)
	if err != nil {
		writeError(w, "list platforms", err)
		return
	}
	if list == nil {
		list = []model.Platform{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"platforms": list})
}

func (s *Server) handleCreatePlatform(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrgID    string `json:"orgId"`
		Name     string `json:"name"`
		Provider string `json:"provider"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "create platform", err)
		return
	}
	if err := required("orgId", req.OrgID); err != nil {
		writeError(w, "create platform", err)
		return
	}
	if err := required("name", req.Name); err != nil {
		writeError(w, "create platform", err)
		return
	}
	if _, err := s.gate.Require(r.Context(), req.OrgID, authz.SpendWrite); err != nil {
		writeError(w, "create platform", err)
		return
	}
	p, err := s.platforms.Create(r.Context(), req.OrgID, req.Name, req.Provider)
	if err != nil {
		writeError(w, "create platform", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
