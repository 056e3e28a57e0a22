package handlers

import (
	"context"
	"net/http"
)

// Family returns the caller's family with its members
func (h *APIHandler) Family(w http.ResponseWriter, r *http.Request) {
	family, err := h.family.GetFamily(GetUserFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, family)
}

// RenameFamily changes the family name
func (h *APIHandler) RenameFamily(w http.ResponseWriter, r *http.Request) {
	var req renameFamilyRequest
	if !bindJSON(w, r, &req) {
		return
	}
	user := GetUserFromContext(r.Context())
	if err := h.family.RenameFamily(user, req.Name); err != nil {
		respondServiceError(w, err)
		return
	}
	h.Family(w, r)
}

// FamilyInvitations lists invitations sent for the caller's family
func (h *APIHandler) FamilyInvitations(w http.ResponseWriter, r *http.Request) {
	invitations, err := h.family.ListInvitations(GetUserFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, invitations)
}

// InviteFamilyMember emails an invitation to join the caller's family
func (h *APIHandler) InviteFamilyMember(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if !bindJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), emailTimeout)
	defer cancel()

	invitation, err := h.family.InviteMember(ctx, GetUserFromContext(r.Context()), req.Email)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, invitation)
}

// AcceptInvitation joins the caller to the family behind an invitation code
func (h *APIHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req acceptInvitationRequest
	if !bindJSON(w, r, &req) {
		return
	}
	family, err := h.family.AcceptInvitation(GetUserFromContext(r.Context()), req.Code)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, family)
}

// Institutions lists every institution
func (h *APIHandler) Institutions(w http.ResponseWriter, r *http.Request) {
	institutions, err := h.institutions.Institutions()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, institutions)
}

// CreateInstitution adds an institution; admins only
func (h *APIHandler) CreateInstitution(w http.ResponseWriter, r *http.Request) {
	var req institutionRequest
	if !bindJSON(w, r, &req) {
		return
	}
	institution, err := h.institutions.CreateInstitution(GetUserFromContext(r.Context()), req.Name, req.Type)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, institution)
}

// Classrooms lists the calling educator's classrooms
func (h *APIHandler) Classrooms(w http.ResponseWriter, r *http.Request) {
	classrooms, err := h.institutions.EducatorClassrooms(GetUserFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, classrooms)
}

// CreateClassroom opens a classroom with a fresh join code; educators only
func (h *APIHandler) CreateClassroom(w http.ResponseWriter, r *http.Request) {
	var req classroomRequest
	if !bindJSON(w, r, &req) {
		return
	}
	classroom, err := h.institutions.CreateClassroom(GetUserFromContext(r.Context()), req.Name, req.AgeGroup, req.InstitutionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, classroom)
}

// JoinClassroom enrols one of the caller's children with a classroom join code
func (h *APIHandler) JoinClassroom(w http.ResponseWriter, r *http.Request) {
	var req joinClassroomRequest
	if !bindJSON(w, r, &req) {
		return
	}
	classroom, err := h.institutions.JoinClassroom(GetUserFromContext(r.Context()), req.Code, req.ChildID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, classroom)
}
