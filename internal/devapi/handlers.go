package devapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/courtside/clubapp/internal/auth"
	"github.com/courtside/clubapp/internal/client"
	"github.com/courtside/clubapp/internal/pkg/logger"
)

const errCodeNotRequested = "no verification code requested for this phone, or it expired"

// RequestVerification accepts a phone number and pretends to text it a code
func (s *Server) RequestVerification(w http.ResponseWriter, r *http.Request) {
	var req client.VerificationRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Phone) == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}

	s.mu.Lock()
	s.pending[req.Phone] = s.now().Add(s.codeLifetime)
	s.mu.Unlock()

	s.log.Info("verification code requested",
		slog.String("phone", req.Phone),
		slog.String("code", s.verificationCode))
	writeSuccess(w, http.StatusOK, struct{}{})
}

// VerifyPhone logs in an existing member with a verification code
func (s *Server) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	var req client.VerificationCheck
	if err := decodeBody(r, &req); err != nil || req.Phone == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "phone and code are required")
		return
	}
	if req.Code != s.verificationCode {
		writeError(w, http.StatusBadRequest, "invalid verification code")
		return
	}

	s.mu.Lock()
	if !s.codeRequested(req.Phone) {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, errCodeNotRequested)
		return
	}
	// The code stays pending for an unknown phone so it can still register
	member, ok := s.members[s.byPhone[req.Phone]]
	if ok {
		delete(s.pending, req.Phone)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no member with this phone, register first")
		return
	}

	pair, err := s.issueSession(member)
	if err != nil {
		s.log.Error("failed to issue tokens", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}
	writeSuccess(w, http.StatusOK, pair)
}

// RegisterMember creates a member for a verified phone and logs it in
func (s *Server) RegisterMember(w http.ResponseWriter, r *http.Request) {
	var req client.MemberRegistration
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid registration body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "name and phone are required")
		return
	}
	if req.VerificationCode != s.verificationCode {
		writeError(w, http.StatusBadRequest, "invalid verification code")
		return
	}

	s.mu.Lock()
	if _, exists := s.byPhone[req.Phone]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "phone already registered")
		return
	}
	if !s.codeRequested(req.Phone) {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, errCodeNotRequested)
		return
	}
	member := &client.Member{ID: s.ids.NextID(), Name: req.Name, Phone: req.Phone}
	s.members[member.ID] = member
	s.byPhone[member.Phone] = member.ID
	delete(s.pending, req.Phone)
	s.mu.Unlock()

	pair, err := s.issueSession(member)
	if err != nil {
		s.log.Error("failed to issue tokens", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}

	s.log.Info("member registered", slog.String("member_id", member.ID))
	writeSuccess(w, http.StatusCreated, client.Registration{Member: *member, Tokens: pair})
}

// Refresh rotates a refresh token. Each refresh token can be used once.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := bearer(r.Header.Get(s.refreshHeader))
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	claims, err := s.jwt.ValidateRefreshToken(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if !s.revokeSession(claims.TokenID) {
		s.log.Warn("refresh token reuse", slog.String("member_id", claims.MemberID))
		writeError(w, http.StatusUnauthorized, "refresh token already used")
		return
	}

	member, ok := s.memberByID(claims.MemberID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "member no longer exists")
		return
	}

	pair, err := s.issueSession(member)
	if err != nil {
		s.log.Error("failed to issue tokens", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}
	writeSuccess(w, http.StatusOK, pair)
}

// Me returns the authenticated member
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.GetMemberFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	s.writeMember(w, caller.MemberID)
}

// GetMember returns a member by ID; members can only read themselves
func (s *Server) GetMember(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := auth.CanAccessMember(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrForbidden) {
			if caller, err := auth.GetMemberFromContext(r.Context()); err == nil {
				logger.WithMember(s.log, caller.MemberID).Warn("member read denied", slog.String("target_id", id))
			}
			writeError(w, http.StatusForbidden, "you can only read your own member record")
			return
		}
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	s.writeMember(w, id)
}

func (s *Server) writeMember(w http.ResponseWriter, id string) {
	member, ok := s.memberByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	writeSuccess(w, http.StatusOK, member)
}

// bearer strips the Bearer scheme from an authorization header value
func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
