package reimbursement

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hackgrid/hackgrid/internal/rest"
	"github.com/hackgrid/hackgrid/pkg/user"
	log "github.com/sirupsen/logrus"
)

type RequestDTO struct {
	TransportationMethod string   `json:"transportationMethod"`
	Address              string   `json:"address"`
	Distance             float64  `json:"distance"`
	EstimatedCost        float64  `json:"estimatedCost"`
	Reason               string   `json:"reason"`
	IsGroup              bool     `json:"isGroup"`
	Members              []string `json:"members,omitempty"`
}

type MemberDTO struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

type InviteDTO struct {
	MemberDTO
	Status string `json:"status"`
}

type ReimbursementDTO struct {
	Id                   uuid.UUID   `json:"id"`
	Leader               MemberDTO   `json:"leader"`
	TransportationMethod string      `json:"transportationMethod"`
	Address              string      `json:"address"`
	Distance             float64     `json:"distance"`
	EstimatedCost        float64     `json:"estimatedCost"`
	Reason               string      `json:"reason"`
	CreatedAt            time.Time   `json:"createdAt"`
	IsGroup              bool        `json:"isGroup"`
	Invites              []InviteDTO `json:"invites"`
}

type PendingInviteDTO struct {
	ReimbursementId uuid.UUID `json:"reimbursementId"`
	Leader          MemberDTO `json:"leader"`
	InvitedAt       time.Time `json:"invitedAt"`
}

type StatusDTO struct {
	HasReimbursement bool               `json:"hasReimbursement"`
	IsLeader         bool               `json:"isLeader"`
	Reimbursement    *ReimbursementDTO  `json:"reimbursement,omitempty"`
	PendingInvites   []PendingInviteDTO `json:"pendingInvites"`
}

type InviteResponseDTO struct {
	Accept bool `json:"accept"`
}

type InviteStatusDTO struct {
	Status string `json:"status"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

// GetStatus godoc
// @Summary Current user's reimbursement and pending invites
// @Tags Reimbursement
// @Produce json
// @Success 200 {object} StatusDTO
// @Failure 401 {object} rest.ErrorResponse "Unauthorized"
// @Router /api/reimbursement [get]
// @Security XUserId
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dto := StatusDTO{
		HasReimbursement: status.Reimbursement != nil,
		IsLeader:         status.Leader,
		PendingInvites:   make([]PendingInviteDTO, 0, len(status.PendingInvites)),
	}
	if status.Reimbursement != nil {
		details := toDTO(*status.Reimbursement)
		dto.Reimbursement = &details
	}
	for _, invite := range status.PendingInvites {
		dto.PendingInvites = append(dto.PendingInvites, PendingInviteDTO{
			ReimbursementId: invite.ReimbursementId,
			Leader:          memberToDTO(invite.Leader),
			InvitedAt:       invite.CreatedAt,
		})
	}
	rest.WriteJSON(w, http.StatusOK, dto)
}

// Submit godoc
// @Summary Submit a travel reimbursement request
// @Description Solo requests need no members. Group requests invite up to 10 members by username.
// @Tags Reimbursement
// @Accept json
// @Produce json
// @Param request body RequestDTO true "Reimbursement request"
// @Success 201 {object} ReimbursementDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 409 {object} rest.ErrorResponse "Already part of a reimbursement"
// @Failure 422 {object} rest.ErrorResponse "Unknown group member"
// @Router /api/reimbursement [post]
// @Security XUserId
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	request, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	details, err := h.service.Submit(r.Context(), request)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, toDTO(details))
}

// Update godoc
// @Summary Update a reimbursement request and invite new members
// @Tags Reimbursement
// @Accept json
// @Produce json
// @Param id path string true "Reimbursement ID"
// @Param request body RequestDTO true "Reimbursement request"
// @Success 200 {object} ReimbursementDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 403 {object} rest.ErrorResponse "Not the group leader"
// @Failure 404 {object} rest.ErrorResponse "Reimbursement not found"
// @Router /api/reimbursement/{id} [put]
// @Security XUserId
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r)
	if !ok {
		return
	}
	request, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	details, err := h.service.Update(r.Context(), id, request)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(details))
}

// Delete godoc
// @Summary Delete a reimbursement request
// @Tags Reimbursement
// @Param id path string true "Reimbursement ID"
// @Success 204
// @Failure 403 {object} rest.ErrorResponse "Not the group leader"
// @Failure 404 {object} rest.ErrorResponse "Reimbursement not found"
// @Router /api/reimbursement/{id} [delete]
// @Security XUserId
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RespondToInvite godoc
// @Summary Accept or decline a group invite
// @Tags Reimbursement
// @Accept json
// @Produce json
// @Param id path string true "Reimbursement ID"
// @Param response body InviteResponseDTO true "Answer"
// @Success 200 {object} InviteStatusDTO
// @Failure 404 {object} rest.ErrorResponse "No pending invite"
// @Failure 409 {object} rest.ErrorResponse "Already part of another reimbursement"
// @Router /api/reimbursement/{id}/invite [post]
// @Security XUserId
func (h *Handler) RespondToInvite(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r)
	if !ok {
		return
	}
	var response InviteResponseDTO
	if err := json.NewDecoder(r.Body).Decode(&response); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	status, err := h.service.Respond(r.Context(), id, response.Accept)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, InviteStatusDTO{Status: string(status)})
}

// List godoc
// @Summary All reimbursement requests
// @Tags Reimbursement
// @Produce json
// @Success 200 {array} ReimbursementDTO
// @Failure 403 {object} rest.ErrorResponse "Forbidden"
// @Router /api/admin/reimbursement [get]
// @Security XUserId
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]ReimbursementDTO, 0, len(all))
	for _, details := range all {
		dtos = append(dtos, toDTO(details))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (Request, bool) {
	var dto RequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return Request{}, false
	}
	return Request{
		Transport:     Transport(dto.TransportationMethod),
		Address:       dto.Address,
		Distance:      dto.Distance,
		EstimatedCost: dto.EstimatedCost,
		Reason:        dto.Reason,
		Group:         dto.IsGroup,
		Members:       dto.Members,
	}, true
}

func idFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid reimbursement ID", err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func memberToDTO(u user.User) MemberDTO {
	return MemberDTO{Username: u.Username, DisplayName: u.DisplayName}
}

func toDTO(d Details) ReimbursementDTO {
	dto := ReimbursementDTO{
		Id:                   d.Id,
		Leader:               memberToDTO(d.Creator),
		TransportationMethod: string(d.Transport),
		Address:              d.Address,
		Distance:             d.Distance,
		EstimatedCost:        d.EstimatedCost,
		Reason:               d.Reason,
		CreatedAt:            d.CreatedAt,
		IsGroup:              d.Group(),
		Invites:              make([]InviteDTO, 0, len(d.Invites)),
	}
	for _, invite := range d.Invites {
		dto.Invites = append(dto.Invites, InviteDTO{MemberDTO: memberToDTO(invite.User), Status: string(invite.Status)})
	}
	return dto
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, user.ErrForbidden):
		rest.WriteError(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, ErrInvalidReimbursement), errors.Is(err, ErrNoMembers), errors.Is(err, ErrTooManyMembers):
		rest.WriteError(w, http.StatusBadRequest, "Invalid reimbursement request", err.Error())
	case errors.Is(err, ErrInvalidMember):
		rest.WriteError(w, http.StatusUnprocessableEntity, "Invalid group member", err.Error())
	case errors.Is(err, ErrAlreadyMember):
		rest.WriteError(w, http.StatusConflict, "Already part of a travel reimbursement", err.Error())
	case errors.Is(err, ErrReimbursementNotFound):
		rest.WriteError(w, http.StatusNotFound, "Reimbursement not found", "")
	case errors.Is(err, ErrInviteNotFound):
		rest.WriteError(w, http.StatusNotFound, "No pending invite", "")
	default:
		log.Errorf("reimbursement request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}
