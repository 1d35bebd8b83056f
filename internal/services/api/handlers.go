package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Sitewatch/internal/domain/user"
)

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	uid, err := pathID(r, "userID")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var p userRequest
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeErr(w, r, badRequest("bad payload"))
		return
	}
	u := &user.User{ID: uid, Username: p.Username, FirstName: p.FirstName, LastName: p.LastName}
	if err := s.Engine.AddUser(r.Context(), u); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	uid, err := pathID(r, "userID")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	sites, err := s.Engine.ListSites(r.Context(), uid)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSites(sites))
}

func (s *Server) decodeAdd(r *http.Request) (int64, addSiteRequest, error) {
	var p addSiteRequest
	uid, err := pathID(r, "userID")
	if err != nil {
		return 0, p, err
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.URL == "" {
		return 0, p, badRequest("bad payload")
	}
	return uid, p, nil
}

// handleAddSite answers 201 when the site was created and 200 with
// created=false when it was unreachable; the client may then confirm.
func (s *Server) handleAddSite(w http.ResponseWriter, r *http.Request) {
	uid, p, err := s.decodeAdd(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	res, err := s.Engine.AddSite(r.Context(), uid, p.URL)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	code := http.StatusOK
	if res.Created {
		code = http.StatusCreated
	}
	writeJSON(w, code, addSiteResponse{Created: res.Created, Site: toSite(res.Site), Outcome: toOutcome(res.Outcome)})
}

func (s *Server) handleAddSiteAnyway(w http.ResponseWriter, r *http.Request) {
	uid, p, err := s.decodeAdd(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	res, err := s.Engine.AddSiteAnyway(r.Context(), uid, p.URL, p.Reason)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCheck(res))
}

func (s *Server) userAndSite(r *http.Request) (int64, int64, error) {
	uid, err := pathID(r, "userID")
	if err != nil {
		return 0, 0, err
	}
	sid, err := pathID(r, "siteID")
	if err != nil {
		return 0, 0, err
	}
	return uid, sid, nil
}

func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	uid, sid, err := s.userAndSite(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	info, err := s.Engine.GetSite(r.Context(), uid, sid, refresh)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, siteInfoResponse{Site: toSite(info.Site), Stats: info.Stats, Check: toCheck(info.Check)})
}

func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	uid, sid, err := s.userAndSite(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	ok, err := s.Engine.DeleteSite(r.Context(), uid, sid)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "site not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func logErrorsParam(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("log_errors"))
	if err != nil {
		return true
	}
	return v
}

func (s *Server) handleCheckOne(w http.ResponseWriter, r *http.Request) {
	uid, sid, err := s.userAndSite(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	res, err := s.Engine.CheckOne(r.Context(), uid, sid, logErrorsParam(r))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCheck(res))
}

// handleCheckAll probes every site of the user. The run takes roughly
// sites/workers probe timeouts, so its write deadline is CheckAllTimeout
// rather than the server's WriteTimeout.
func (s *Server) handleCheckAll(w http.ResponseWriter, r *http.Request) {
	uid, err := pathID(r, "userID")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var deadline time.Time
	if s.CheckAllTimeout > 0 {
		deadline = time.Now().Add(s.CheckAllTimeout)
	}
	if err := http.NewResponseController(w).SetWriteDeadline(deadline); err != nil {
		s.Log.Warn("check all: write deadline not extended", zap.Error(err))
	}
	results, err := s.Engine.CheckAll(r.Context(), uid, logErrorsParam(r))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	out := make([]*checkDTO, 0, len(results))
	for i := range results {
		out = append(out, toCheck(&results[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	uid, sid, err := s.userAndSite(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	info, err := s.Engine.GetSite(r.Context(), uid, sid, false)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info.Stats)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	uid, sid, err := s.userAndSite(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	limit, _, err := queryInt(r, "limit")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	recs, err := s.Engine.History(r.Context(), uid, sid, int(limit))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleListErrors(w http.ResponseWriter, r *http.Request) {
	uid, err := pathID(r, "userID")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var siteID *int64
	sid, ok, err := queryInt(r, "site_id")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if ok {
		siteID = &sid
	}
	limit, _, err := queryInt(r, "limit")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	list, err := s.Engine.ListErrors(r.Context(), uid, siteID, int(limit))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleResolveError(w http.ResponseWriter, r *http.Request) {
	uid, err := pathID(r, "userID")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	eid, err := pathID(r, "errorID")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.Engine.ResolveError(r.Context(), uid, eid); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResolveSiteErrors(w http.ResponseWriter, r *http.Request) {
	uid, sid, err := s.userAndSite(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	n, err := s.Engine.ResolveAllErrorsForSite(r.Context(), sid, uid)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"resolved": n})
}
