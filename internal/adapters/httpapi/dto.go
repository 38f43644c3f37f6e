package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/transito-regional/licensing-api/internal/app/licenses"
	"github.com/transito-regional/licensing-api/internal/domain"
)

// Wire shapes. Calendar fields use openapi_types.Date (YYYY-MM-DD);
// timestamps are RFC 3339.

type licenseResponse struct {
	Id           string                    `json:"id"`
	DriverId     string                    `json:"driverId"`
	LicenseType  string                    `json:"licenseType"`
	Category     string                    `json:"category"`
	Status       string                    `json:"status"`
	StatusReason nullable.Nullable[string] `json:"statusReason,omitempty"`
	IssueDate    openapi_types.Date        `json:"issueDate"`
	ExpiryDate   openapi_types.Date        `json:"expiryDate"`
	Points       int                       `json:"points"`
	Restrictions nullable.Nullable[string] `json:"restrictions,omitempty"`
	Renewed      bool                      `json:"renewed"`
	CreatedAt    time.Time                 `json:"createdAt"`
	UpdatedAt    time.Time                 `json:"updatedAt"`
}

func licenseFromDomain(l domain.License) licenseResponse {
	out := licenseResponse{
		Id:          string(l.ID),
		DriverId:    string(l.DriverID),
		LicenseType: string(l.Type),
		Category:    string(l.Category),
		Status:      string(l.Status),
		IssueDate:   openapi_types.Date{Time: l.IssueDate},
		ExpiryDate:  openapi_types.Date{Time: l.ExpiryDate},
		Points:      l.Points,
		Renewed:     l.Renewed,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if l.StatusReason != nil {
		out.StatusReason = nullable.NewNullableWithValue(*l.StatusReason)
	}
	if l.Restrictions != nil {
		out.Restrictions = nullable.NewNullableWithValue(*l.Restrictions)
	}
	return out
}

type licenseListResponse struct {
	Licenses []licenseResponse `json:"licenses"`
}

func licenseListFromDomain(ls []domain.License) licenseListResponse {
	out := make([]licenseResponse, 0, len(ls))
	for _, l := range ls {
		out = append(out, licenseFromDomain(l))
	}
	return licenseListResponse{Licenses: out}
}

type examResponse struct {
	Id        string                    `json:"id"`
	ExamType  string                    `json:"examType"`
	Date      openapi_types.Date        `json:"date"`
	Result    string                    `json:"result"`
	EntityId  string                    `json:"entityId"`
	DriverId  string                    `json:"driverId"`
	Examiner  nullable.Nullable[string] `json:"examiner,omitempty"`
	CreatedAt time.Time                 `json:"createdAt"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

func examFromDomain(e domain.ExamRecord) examResponse {
	out := examResponse{
		Id:        string(e.ID),
		ExamType:  string(e.Type),
		Date:      openapi_types.Date{Time: e.Date},
		Result:    string(e.Result),
		EntityId:  string(e.EntityID),
		DriverId:  string(e.DriverID),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.Examiner != nil {
		out.Examiner = nullable.NewNullableWithValue(*e.Examiner)
	}
	return out
}

type examListResponse struct {
	Exams []examResponse `json:"exams"`
}

type issueLicenseRequest struct {
	DriverId      string  `json:"driverId"`
	LicenseType   string  `json:"licenseType"`
	Category      string  `json:"category"`
	ValidityYears int     `json:"validityYears"`
	Restrictions  *string `json:"restrictions,omitempty"`
}

type updateLicenseRequest struct {
	LicenseType  *string                   `json:"licenseType,omitempty"`
	Category     *string                   `json:"category,omitempty"`
	Restrictions nullable.Nullable[string] `json:"restrictions,omitempty"`
}

func (req updateLicenseRequest) toInput() licenses.UpdateLicenseInput {
	var in licenses.UpdateLicenseInput
	if req.LicenseType != nil {
		in.Type = licenses.Some(domain.LicenseType(*req.LicenseType))
	}
	if req.Category != nil {
		in.Category = licenses.Some(domain.VehicleCategory(*req.Category))
	}
	if req.Restrictions.IsSpecified() {
		if req.Restrictions.IsNull() {
			in.Restrictions = licenses.Null[string]()
		} else {
			v, err := req.Restrictions.Get()
			if err == nil {
				in.Restrictions = licenses.Some(v)
			}
		}
	}
	return in
}

type pointsRequest struct {
	Points int `json:"points"`
}

type pointsResponse struct {
	LicenseId string `json:"licenseId"`
	Points    int    `json:"points"`
}

type renewRequest struct {
	NewExpiryDate openapi_types.Date `json:"newExpiryDate"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type transferRequest struct {
	DriverId string `json:"driverId"`
}

type renewalStatusResponse struct {
	LicenseId  string             `json:"licenseId"`
	State      string             `json:"state"`
	Renewable  bool               `json:"renewable"`
	Reason     string             `json:"reason,omitempty"`
	ExpiryDate openapi_types.Date `json:"expiryDate"`
	Renewed    bool               `json:"renewed"`
	Points     int                `json:"points"`
}

type recordExamRequest struct {
	ExamType string             `json:"examType"`
	Date     openapi_types.Date `json:"date"`
	Result   string             `json:"result"`
	EntityId string             `json:"entityId"`
	DriverId string             `json:"driverId"`
	Examiner *string            `json:"examiner,omitempty"`
}

type updateExamRequest struct {
	ExamType string             `json:"examType"`
	Date     openapi_types.Date `json:"date"`
	Result   string             `json:"result"`
	EntityId string             `json:"entityId"`
	Examiner *string            `json:"examiner,omitempty"`
}

type eligibilityResponse struct {
	DriverId string `json:"driverId"`
	ExamType string `json:"examType"`
	Eligible bool   `json:"eligible"`
}

type examChainResponse struct {
	DriverId string `json:"driverId"`
	Complete bool   `json:"complete"`
}

type passRateResponse struct {
	Passed int     `json:"passed"`
	Total  int     `json:"total"`
	Rate   float64 `json:"rate"`
}

type createDriverRequest struct {
	DocumentId string             `json:"documentId"`
	FullName   string             `json:"fullName"`
	BirthDate  openapi_types.Date `json:"birthDate"`
}

type driverResponse struct {
	Id         string             `json:"id"`
	DocumentId string             `json:"documentId"`
	FullName   string             `json:"fullName"`
	BirthDate  openapi_types.Date `json:"birthDate"`
}

type createEntityRequest struct {
	Name       string `json:"name"`
	EntityType string `json:"entityType"`
}

type entityResponse struct {
	Id         string `json:"id"`
	Name       string `json:"name"`
	EntityType string `json:"entityType"`
}
