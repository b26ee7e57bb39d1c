package ibmqtest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Login credentials the server accepts next to the api token
const (
	DefaultEmail    = "qx-tester@example.com"
	DefaultPassword = "qx-test-password"
)

func (s *Server) handleLoginWithToken(w http.ResponseWriter, r *http.Request) {
	s.loginCount.Add(1)

	var req struct {
		Token string `json:"apiToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token != s.apiToken {
		writeErr(w, http.StatusUnauthorized, "Invalid token.")
		return
	}

	s.respondLogin(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.loginCount.Add(1)

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.Email != DefaultEmail || req.Password != DefaultPassword {
		writeErr(w, http.StatusUnauthorized, "login failed")
		return
	}

	s.respondLogin(w)
}

func (s *Server) respondLogin(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      s.issueToken(),
		"userId":  s.userID,
		"ttl":     1209600,
		"created": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.version)
}

func (s *Server) device(name string) (Device, bool) {
	for _, d := range s.devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.devices)
}

// handleQueueStatus serves the one public endpoint. It rejects requests
// that carry an access token, pinning down clients that leak it.
func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("access_token") != "" {
		writeErr(w, http.StatusBadRequest, "queue status does not take an access token")
		return
	}

	name := chi.URLParam(r, "backend")
	s.mu.Lock()
	queue, ok := s.queues[name]
	s.mu.Unlock()
	if !ok {
		writeErr(w, http.StatusNotFound, "Backend not found")
		return
	}
	writeJSON(w, http.StatusOK, queue)
}

func (s *Server) handleProperties(w http.ResponseWriter, r *http.Request) {
	d, ok := s.device(chi.URLParam(r, "backend"))
	if !ok {
		writeErr(w, http.StatusNotFound, "Backend not found")
		return
	}
	writeJSON(w, http.StatusOK, propertiesDoc(d))
}

func (s *Server) handleCalibration(w http.ResponseWriter, r *http.Request) {
	d, ok := s.device(chi.URLParam(r, "backend"))
	if !ok {
		writeErr(w, http.StatusNotFound, "Backend not found")
		return
	}
	writeJSON(w, http.StatusOK, calibrationDoc(d))
}

func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
	d, ok := s.device(chi.URLParam(r, "backend"))
	if !ok {
		writeErr(w, http.StatusNotFound, "Backend not found")
		return
	}
	writeJSON(w, http.StatusOK, parametersDoc(d))
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QObject map[string]interface{} `json:"qObject"`
		Backend struct {
			Name string `json:"name"`
		} `json:"backend"`
		HPC map[string]interface{} `json:"hpc"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "malformed job submission")
		return
	}
	if _, ok := s.device(req.Backend.Name); !ok {
		writeErr(w, http.StatusBadRequest, "Backend not available")
		return
	}

	job := &JobDoc{
		Id:           uuid.NewString(),
		Kind:         "q-object",
		Status:       s.jobScript[0],
		CreationDate: time.Now().UTC().Format(time.RFC3339),
		UserId:       s.userID,
		Backend:      map[string]string{"name": req.Backend.Name},
		QObject:      req.QObject,
	}

	s.mu.Lock()
	s.jobs[job.Id] = job
	s.jobOrder = append(s.jobOrder, job.Id)
	s.jobPos[job.Id] = 0
	snapshot := *job
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, snapshot)
}

func terminalStatus(status string) bool {
	switch status {
	case "COMPLETED", "CANCELLED", "ERROR_CREATING_JOB", "ERROR_VALIDATING_JOB", "ERROR_RUNNING_JOB":
		return true
	}
	return false
}

// advanceJob moves a job one step along the status script. Terminal jobs
// stay put. Callers must hold s.mu. It reassigns fields rather than writing
// through shared maps; value copies taken under the lock stay consistent.
func (s *Server) advanceJob(job *JobDoc) {
	if terminalStatus(job.Status) {
		return
	}

	pos := s.jobPos[job.Id]
	if pos < len(s.jobScript)-1 {
		pos++
		s.jobPos[job.Id] = pos
	}
	job.Status = s.jobScript[pos]

	if job.Status == "COMPLETED" && job.QObjectResult == nil {
		version := "1.0.0"
		if d, ok := s.device(job.Backend["name"]); ok {
			version = d.Version
		}
		qobjID, _ := job.QObject["qobj_id"].(string)
		job.QObjectResult = completedResult(job.Backend["name"], version, qobjID, job.Id)
	}
}

func trimmedJob(job JobDoc) map[string]interface{} {
	return map[string]interface{}{
		"id":           job.Id,
		"status":       job.Status,
		"creationDate": job.CreationDate,
		"backend":      job.Backend,
	}
}

// applyFieldsFilter honors a LoopBack {"fields": {...}} filter on a job
// document. True values whitelist, false values blacklist.
func applyFieldsFilter(job JobDoc, rawFilter string) (interface{}, error) {
	if rawFilter == "" {
		return job, nil
	}

	var filter struct {
		Fields map[string]bool `json:"fields"`
	}
	if err := json.Unmarshal([]byte(rawFilter), &filter); err != nil {
		return nil, err
	}
	if len(filter.Fields) == 0 {
		return job, nil
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	whitelist := false
	for _, keep := range filter.Fields {
		if keep {
			whitelist = true
			break
		}
	}

	if whitelist {
		kept := make(map[string]interface{})
		for field, keep := range filter.Fields {
			if keep {
				if v, ok := doc[field]; ok {
					kept[field] = v
				}
			}
		}
		return kept, nil
	}

	for field, keep := range filter.Fields {
		if !keep {
			delete(doc, field)
		}
	}
	return doc, nil
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	job, ok := s.jobs[chi.URLParam(r, "jobID")]
	var snapshot JobDoc
	if ok {
		s.advanceJob(job)
		snapshot = *job
	}
	s.mu.Unlock()

	if !ok {
		writeErr(w, http.StatusNotFound, "Unknown job")
		return
	}

	doc, err := applyFieldsFilter(snapshot, r.URL.Query().Get("filter"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "malformed filter")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	job, ok := s.jobs[chi.URLParam(r, "jobID")]
	var trimmed map[string]interface{}
	if ok {
		s.advanceJob(job)
		trimmed = trimmedJob(*job)
	}
	s.mu.Unlock()

	if !ok {
		writeErr(w, http.StatusNotFound, "Unknown job")
		return
	}
	writeJSON(w, http.StatusOK, trimmed)
}

type listFilter struct {
	Order string                 `json:"order"`
	Limit int                    `json:"limit"`
	Skip  int                    `json:"skip"`
	Where map[string]interface{} `json:"where"`
}

func whereMatch(job *JobDoc, where map[string]interface{}) bool {
	for field, want := range where {
		switch field {
		case "backend.name":
			if job.Backend["name"] != want {
				return false
			}
		case "status":
			if job.Status != want {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// selectJobs applies a listing filter over the stored jobs, newest first.
// Callers must hold s.mu.
func (s *Server) selectJobs(filter listFilter) []*JobDoc {
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}

	var out []*JobDoc
	skipped := 0
	for i := len(s.jobOrder) - 1; i >= 0; i-- {
		job := s.jobs[s.jobOrder[i]]
		if !whereMatch(job, filter.Where) {
			continue
		}
		if skipped < filter.Skip {
			skipped++
			continue
		}
		out = append(out, job)
		if len(out) == limit {
			break
		}
	}
	return out
}

func parseListFilter(r *http.Request) (listFilter, error) {
	var filter listFilter
	raw := r.URL.Query().Get("filter")
	if raw == "" {
		return filter, nil
	}
	err := json.Unmarshal([]byte(raw), &filter)
	return filter, err
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "malformed filter")
		return
	}

	s.mu.Lock()
	selected := s.selectJobs(filter)
	jobs := make([]JobDoc, 0, len(selected))
	for _, job := range selected {
		jobs = append(jobs, *job)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleListJobStatuses(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "malformed filter")
		return
	}

	s.mu.Lock()
	jobs := s.selectJobs(filter)
	trimmed := make([]map[string]interface{}, 0, len(jobs))
	for _, job := range jobs {
		trimmed = append(trimmed, trimmedJob(*job))
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, trimmed)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	job, ok := s.jobs[chi.URLParam(r, "jobID")]
	if ok && terminalStatus(job.Status) {
		s.mu.Unlock()
		writeErr(w, http.StatusOK, "Job cannot be cancelled")
		return
	}
	if ok {
		job.Status = "CANCELLED"
	}
	s.mu.Unlock()

	if !ok {
		writeErr(w, http.StatusNotFound, "Unknown job")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cancelled": true})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "userID") != s.userID {
		writeErr(w, http.StatusUnauthorized, "Authorization Required")
		return
	}

	s.mu.Lock()
	credits := s.credits
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":     s.userID,
		"credit": credits,
	})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Qasm     string `json:"qasm"`
		CodeType string `json:"codeType"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "malformed execution request")
		return
	}
	if r.URL.Query().Get("deviceRunType") == "" {
		writeErr(w, http.StatusBadRequest, "missing deviceRunType")
		return
	}

	var seed *float64
	if raw := r.URL.Query().Get("seed"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "malformed seed")
			return
		}
		seed = &v
	}

	code := &CodeDoc{
		Id:           uuid.NewString(),
		Name:         req.Name,
		Qasm:         req.Qasm,
		CodeType:     req.CodeType,
		UserId:       s.userID,
		CreationDate: time.Now().UTC().Format(time.RFC3339),
		Active:       true,
	}
	exec := &ExecutionDoc{
		Id:     uuid.NewString(),
		CodeId: code.Id,
		Status: map[string]string{"id": s.execScript[0]},
		script: s.execScript,
	}
	if s.execScript[0] == "DONE" {
		exec.Result = experimentResult(seed)
	} else {
		exec.seed = seed
	}

	s.mu.Lock()
	s.codes[code.Id] = code
	s.executions[exec.Id] = exec
	snapshot := *exec
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleExecution(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	exec, ok := s.executions[chi.URLParam(r, "execID")]
	var snapshot ExecutionDoc
	if ok {
		exec.advance()
		snapshot = *exec
	}
	s.mu.Unlock()

	if !ok {
		writeErr(w, http.StatusNotFound, "Unknown execution")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// advance moves an execution one step along its script. Callers must hold
// the server lock. Status is reassigned, never written through; value
// copies taken under the lock stay consistent.
func (e *ExecutionDoc) advance() {
	if e.pos < len(e.script)-1 {
		e.pos++
	}
	status := e.script[e.pos]
	e.Status = map[string]string{"id": status}
	if status == "DONE" && e.Result == nil {
		e.Result = experimentResult(e.seed)
	}
}

func (s *Server) handleCode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	code, ok := s.codes[chi.URLParam(r, "codeID")]
	s.mu.Unlock()

	if !ok {
		writeErr(w, http.StatusNotFound, "Unknown code")
		return
	}
	writeJSON(w, http.StatusOK, code)
}

func (s *Server) handleLastCodes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	codes := make([]map[string]interface{}, 0, len(s.codes))
	for _, code := range s.codes {
		doc := map[string]interface{}{
			"id":           code.Id,
			"name":         code.Name,
			"qasm":         code.Qasm,
			"codeType":     code.CodeType,
			"userId":       code.UserId,
			"creationDate": code.CreationDate,
			"active":       code.Active,
		}
		if r.URL.Query().Get("includeExecutions") == "true" {
			var execs []ExecutionDoc
			for _, exec := range s.executions {
				if exec.CodeId == code.Id {
					execs = append(execs, *exec)
				}
			}
			doc["executions"] = execs
		}
		codes = append(codes, doc)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total": len(codes),
		"count": len(codes),
		"codes": codes,
	})
}

func (s *Server) handleCodeImage(w http.ResponseWriter, r *http.Request) {
	codeID := chi.URLParam(r, "codeID")

	s.mu.Lock()
	_, ok := s.codes[codeID]
	s.mu.Unlock()

	if !ok {
		writeErr(w, http.StatusNotFound, "Unknown code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"url": s.Server.URL + "/render/" + codeID + ".png",
	})
}
