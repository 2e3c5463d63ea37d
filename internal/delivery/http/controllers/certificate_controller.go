package controllers

import (
	"log/slog"
	"net/http"

	"oriyet/internal/delivery/http/helpers"
	"oriyet/internal/domain"
)

// IssueCertificateRequest is the request body for POST /certificates.
type IssueCertificateRequest struct {
	RegistrationID string `json:"registration_id" validate:"required,uuid"`
}

// CertificateSuccessResponse is the success response envelope for certificate endpoints.
type CertificateSuccessResponse struct {
	Data  *domain.Certificate `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

type CertificateController struct {
	Logger  *slog.Logger
	Service domain.CertificateService
}

func NewCertificateController(logger *slog.Logger, svc domain.CertificateService) *CertificateController {
	return &CertificateController{
		Logger:  logger,
		Service: svc,
	}
}

// IssueCertificate godoc
// @Summary Issue my certificate for a completed event
// @Description Returns the existing certificate when one was already issued for the registration.
// @Tags certificates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body IssueCertificateRequest true "Registration"
// @Success 201 {object} controllers.CertificateSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_state or certificate_revoked"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /certificates [post]
func (c *CertificateController) IssueCertificate(w http.ResponseWriter, r *http.Request) {
	var req IssueCertificateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	cert, err := c.Service.IssueCertificate(r.Context(), req.RegistrationID, userID)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, cert)
}

// VerifyCertificate godoc
// @Summary Verify a certificate
// @Description Public lookup by certificate id. Each successful lookup is counted.
// @Tags certificates
// @Produce json
// @Param certificateID path string true "Certificate ID"
// @Success 200 {object} controllers.CertificateSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: certificate_revoked"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /certificates/verify/{certificateID} [get]
func (c *CertificateController) VerifyCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := c.Service.VerifyCertificate(r.Context(), r.PathValue("certificateID"))
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, cert)
}
