package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/transito-regional/licensing-api/internal/app/exams"
	"github.com/transito-regional/licensing-api/internal/app/licenses"
	"github.com/transito-regional/licensing-api/internal/domain"
	"github.com/transito-regional/licensing-api/internal/ports/out/driverrepo"
	"github.com/transito-regional/licensing-api/internal/ports/out/entityrepo"
)

// Server is the HTTP adapter. It decodes requests, delegates to the
// application services and maps their errors onto the wire envelope.
// Driver and entity registration are thin pass-throughs to the registries.
type Server struct {
	Licenses *licenses.Service
	Exams    *exams.Service
	Drivers  driverrepo.Repository
	Entities entityrepo.Repository
}

func NewServer(licensesSvc *licenses.Service, examsSvc *exams.Service, drivers driverrepo.Repository, entities entityrepo.Repository) *Server {
	return &Server{
		Licenses: licensesSvc,
		Exams:    examsSvc,
		Drivers:  drivers,
		Entities: entities,
	}
}

func dateOf(t time.Time) openapi_types.Date {
	return openapi_types.Date{Time: t}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// --- licenses ---

// issueLicense gates issuance on the full exam chain: medical, theoretical
// and practical must all be passed before a license is created.
func (s *Server) issueLicense(w http.ResponseWriter, r *http.Request) {
	var req issueLicenseRequest
	if !decode(w, r, &req) {
		return
	}

	complete, err := s.Exams.HasPassedAllRequiredExams(r.Context(), domain.DriverID(req.DriverId))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if !complete {
		writeError(w, r, http.StatusConflict, "EXAMS_INCOMPLETE",
			"driver has not passed all required exams",
			map[string]any{"driverId": req.DriverId})
		return
	}

	l, err := s.Licenses.IssueNewLicense(r.Context(), licenses.IssueLicenseInput{
		DriverID:      domain.DriverID(req.DriverId),
		Type:          domain.LicenseType(req.LicenseType),
		Category:      domain.VehicleCategory(req.Category),
		ValidityYears: req.ValidityYears,
		Restrictions:  req.Restrictions,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, licenseFromDomain(l))
}

func (s *Server) getLicense(w http.ResponseWriter, r *http.Request) {
	l, err := s.Licenses.GetLicense(r.Context(), domain.LicenseID(chi.URLParam(r, "licenseId")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, licenseFromDomain(l))
}

func (s *Server) updateLicense(w http.ResponseWriter, r *http.Request) {
	var req updateLicenseRequest
	if !decode(w, r, &req) {
		return
	}
	l, err := s.Licenses.UpdateLicense(r.Context(), domain.LicenseID(chi.URLParam(r, "licenseId")), req.toInput())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, licenseFromDomain(l))
}

func (s *Server) deleteLicense(w http.ResponseWriter, r *http.Request) {
	if err := s.Licenses.DeleteLicense(r.Context(), domain.LicenseID(chi.URLParam(r, "licenseId"))); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listLicenses dispatches on the first recognized query filter. Without a
// filter it returns the whole collection.
func (s *Server) listLicenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		ls  []domain.License
		err error
	)
	switch {
	case q.Get("driverId") != "":
		ls, err = s.Licenses.ListByDriver(ctx, domain.DriverID(q.Get("driverId")))
	case q.Get("type") != "":
		ls, err = s.Licenses.ListByType(ctx, domain.LicenseType(q.Get("type")))
	case q.Get("category") != "":
		ls, err = s.Licenses.ListByCategory(ctx, domain.VehicleCategory(q.Get("category")))
	case q.Get("state") != "":
		switch domain.RenewalState(q.Get("state")) {
		case domain.RenewalStateActive:
			ls, err = s.Licenses.ListActive(ctx)
		case domain.RenewalStateExpired:
			ls, err = s.Licenses.ListExpired(ctx)
		case domain.RenewalStateExpiringSoon:
			ls, err = s.Licenses.ListExpiringSoon(ctx)
		default:
			writeError(w, r, http.StatusUnprocessableEntity, "INVALID_LICENSE_DATA", "unknown state", map[string]any{"state": q.Get("state")})
			return
		}
	case q.Get("issuedFrom") != "" || q.Get("issuedTo") != "":
		from, to, ok := dateRangeParams(w, r, "issuedFrom", "issuedTo")
		if !ok {
			return
		}
		ls, err = s.Licenses.ListIssuedBetween(ctx, from, to)
	case q.Get("expiringFrom") != "" || q.Get("expiringTo") != "":
		from, to, ok := dateRangeParams(w, r, "expiringFrom", "expiringTo")
		if !ok {
			return
		}
		ls, err = s.Licenses.ListExpiringBetween(ctx, from, to)
	default:
		ls, err = s.Licenses.ListLicenses(ctx)
	}
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, licenseListFromDomain(ls))
}

func dateRangeParams(w http.ResponseWriter, r *http.Request, fromKey, toKey string) (time.Time, time.Time, bool) {
	from, err := time.Parse(time.DateOnly, r.URL.Query().Get(fromKey))
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid date", map[string]any{fromKey: "must be YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(time.DateOnly, r.URL.Query().Get(toKey))
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid date", map[string]any{toKey: "must be YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// --- points ledger ---

func (s *Server) deductPoints(w http.ResponseWriter, r *http.Request) {
	s.pointsMutation(w, r, s.Licenses.DeductPoints)
}

func (s *Server) restorePoints(w http.ResponseWriter, r *http.Request) {
	s.pointsMutation(w, r, s.Licenses.RestorePoints)
}

func (s *Server) pointsMutation(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id domain.LicenseID, n int) (int, error)) {
	var req pointsRequest
	if !decode(w, r, &req) {
		return
	}
	id := domain.LicenseID(chi.URLParam(r, "licenseId"))
	balance, err := apply(r.Context(), id, req.Points)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pointsResponse{LicenseId: string(id), Points: balance})
}

func (s *Server) resetPoints(w http.ResponseWriter, r *http.Request) {
	id := domain.LicenseID(chi.URLParam(r, "licenseId"))
	balance, err := s.Licenses.ResetPoints(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pointsResponse{LicenseId: string(id), Points: balance})
}

// --- renewal and status ---

func (s *Server) renewalStatus(w http.ResponseWriter, r *http.Request) {
	id := domain.LicenseID(chi.URLParam(r, "licenseId"))
	st, err := s.Licenses.RenewalStatus(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renewalStatusResponse{
		LicenseId:  string(id),
		State:      string(st.State),
		Renewable:  st.Renewable,
		Reason:     st.Reason,
		ExpiryDate: dateOf(st.ExpiryDate),
		Renewed:    st.Renewed,
		Points:     st.Points,
	})
}

func (s *Server) renewLicense(w http.ResponseWriter, r *http.Request) {
	var req renewRequest
	if !decode(w, r, &req) {
		return
	}
	l, err := s.Licenses.RenewLicense(r.Context(), domain.LicenseID(chi.URLParam(r, "licenseId")), req.NewExpiryDate.Time)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, licenseFromDomain(l))
}

func (s *Server) suspendLicense(w http.ResponseWriter, r *http.Request) {
	s.statusChange(w, r, s.Licenses.SuspendLicense)
}

func (s *Server) revokeLicense(w http.ResponseWriter, r *http.Request) {
	s.statusChange(w, r, s.Licenses.RevokeLicense)
}

func (s *Server) statusChange(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id domain.LicenseID, reason string) (domain.License, error)) {
	var req reasonRequest
	if !decode(w, r, &req) {
		return
	}
	l, err := apply(r.Context(), domain.LicenseID(chi.URLParam(r, "licenseId")), req.Reason)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, licenseFromDomain(l))
}

func (s *Server) transferLicense(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decode(w, r, &req) {
		return
	}
	l, err := s.Licenses.TransferLicense(r.Context(), domain.LicenseID(chi.URLParam(r, "licenseId")), domain.DriverID(req.DriverId))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, licenseFromDomain(l))
}

// --- exams ---

func (s *Server) recordExam(w http.ResponseWriter, r *http.Request) {
	var req recordExamRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := s.Exams.RecordExam(r.Context(), exams.RecordExamInput{
		Type:     domain.ExamType(req.ExamType),
		Date:     req.Date.Time,
		Result:   domain.ExamResult(req.Result),
		EntityID: domain.EntityID(req.EntityId),
		DriverID: domain.DriverID(req.DriverId),
		Examiner: req.Examiner,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, examFromDomain(e))
}

func (s *Server) getExam(w http.ResponseWriter, r *http.Request) {
	e, err := s.Exams.GetExam(r.Context(), domain.ExamID(chi.URLParam(r, "examId")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, examFromDomain(e))
}

func (s *Server) updateExam(w http.ResponseWriter, r *http.Request) {
	var req updateExamRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := s.Exams.UpdateExam(r.Context(), domain.ExamID(chi.URLParam(r, "examId")), exams.UpdateExamInput{
		Type:     domain.ExamType(req.ExamType),
		Date:     req.Date.Time,
		Result:   domain.ExamResult(req.Result),
		EntityID: domain.EntityID(req.EntityId),
		Examiner: req.Examiner,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, examFromDomain(e))
}

func (s *Server) deleteExam(w http.ResponseWriter, r *http.Request) {
	if err := s.Exams.DeleteExam(r.Context(), domain.ExamID(chi.URLParam(r, "examId"))); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listDriverExams(w http.ResponseWriter, r *http.Request) {
	es, err := s.Exams.ListExamsByDriver(r.Context(), domain.DriverID(chi.URLParam(r, "driverId")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]examResponse, 0, len(es))
	for _, e := range es {
		out = append(out, examFromDomain(e))
	}
	writeJSON(w, http.StatusOK, examListResponse{Exams: out})
}

func (s *Server) examEligibility(w http.ResponseWriter, r *http.Request) {
	driverID := domain.DriverID(chi.URLParam(r, "driverId"))
	examType := domain.ExamType(r.URL.Query().Get("type"))
	ok, err := s.Exams.CanTakeExam(r.Context(), driverID, examType)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eligibilityResponse{
		DriverId: string(driverID),
		ExamType: string(examType),
		Eligible: ok,
	})
}

func (s *Server) examChainComplete(w http.ResponseWriter, r *http.Request) {
	driverID := domain.DriverID(chi.URLParam(r, "driverId"))
	complete, err := s.Exams.HasPassedAllRequiredExams(r.Context(), driverID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, examChainResponse{DriverId: string(driverID), Complete: complete})
}

// passRate serves both groupings: ?type= for a per-exam-type rate,
// ?entityId= for a per-entity rate.
func (s *Server) passRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		pr  exams.PassRate
		err error
	)
	switch {
	case q.Get("type") != "":
		pr, err = s.Exams.PassRateByType(r.Context(), domain.ExamType(q.Get("type")))
	case q.Get("entityId") != "":
		pr, err = s.Exams.PassRateByEntity(r.Context(), domain.EntityID(q.Get("entityId")))
	default:
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "either type or entityId is required", nil)
		return
	}
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, passRateResponse{Passed: pr.Passed, Total: pr.Total, Rate: pr.Rate})
}

// --- registries ---

func (s *Server) createDriver(w http.ResponseWriter, r *http.Request) {
	var req createDriverRequest
	if !decode(w, r, &req) {
		return
	}
	if req.DocumentId == "" || req.FullName == "" || req.BirthDate.Time.IsZero() {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "documentId, fullName and birthDate are required", nil)
		return
	}
	now := time.Now().UTC()
	d := driverrepo.Driver{
		ID:         domain.DriverID(uuid.NewString()),
		DocumentID: req.DocumentId,
		FullName:   domain.NormalizeFreeText(req.FullName),
		BirthDate:  domain.DateOnly(req.BirthDate.Time),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Drivers.Create(r.Context(), d); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, driverResponse{
		Id:         string(d.ID),
		DocumentId: d.DocumentID,
		FullName:   d.FullName,
		BirthDate:  dateOf(d.BirthDate),
	})
}

func (s *Server) getDriver(w http.ResponseWriter, r *http.Request) {
	d, err := s.Drivers.GetByID(r.Context(), domain.DriverID(chi.URLParam(r, "driverId")))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "DRIVER_NOT_FOUND", "driver not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, driverResponse{
		Id:         string(d.ID),
		DocumentId: d.DocumentID,
		FullName:   d.FullName,
		BirthDate:  dateOf(d.BirthDate),
	})
}

func (s *Server) createEntity(w http.ResponseWriter, r *http.Request) {
	var req createEntityRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" || !domain.KnownEntityType(domain.EntityType(req.EntityType)) {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name and a known entityType are required", nil)
		return
	}
	now := time.Now().UTC()
	e := entityrepo.Entity{
		ID:        domain.EntityID(uuid.NewString()),
		Name:      domain.NormalizeFreeText(req.Name),
		Type:      domain.EntityType(req.EntityType),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Entities.Create(r.Context(), e); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entityResponse{
		Id:         string(e.ID),
		Name:       e.Name,
		EntityType: string(e.Type),
	})
}

func (s *Server) getEntity(w http.ResponseWriter, r *http.Request) {
	e, err := s.Entities.GetByID(r.Context(), domain.EntityID(chi.URLParam(r, "entityId")))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "ENTITY_NOT_FOUND", "entity not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, entityResponse{
		Id:         string(e.ID),
		Name:       e.Name,
		EntityType: string(e.Type),
	})
}
