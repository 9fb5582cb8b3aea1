package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mzhurin/convo/internal/server/auth"
	"github.com/mzhurin/convo/internal/server/services"
	"github.com/mzhurin/convo/internal/server/ws"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "")
		return
	}

	user, token, err := s.identity.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.logger.Error(r.Context(), "registration failed", "username", req.Username, "error", err.Error())
		writeError(w, err, "User not found")
		return
	}

	s.logger.Info(r.Context(), "registered", "username", user.Username)
	writeJSON(w, http.StatusCreated, map[string]string{
		"token":  token,
		"unique": user.Unique,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "")
		return
	}

	user, token, err := s.identity.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token":  token,
		"unique": user.Unique,
	})
}

type contactLookupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) handleContactLookup(w http.ResponseWriter, r *http.Request) {
	var req contactLookupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "")
		return
	}

	user, err := s.identity.FindByCredentials(r.Context(), req.Username, req.Email)
	if err != nil {
		writeError(w, err, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"unique": user.Unique})
}

type contactAddRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Unique   string `json:"unique"`
}

func (s *Server) handleContactAdd(w http.ResponseWriter, r *http.Request) {
	var req contactAddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "")
		return
	}

	contact, err := s.identity.FindByCredentials(r.Context(), req.Username, req.Email)
	if err != nil {
		writeError(w, err, "User not found")
		return
	}

	result, err := s.contacts.AddMutualContact(r.Context(), req.Unique, contact.Unique)
	if err != nil {
		s.logger.Error(r.Context(), "add contact failed", "unique", req.Unique, "error", err.Error())
		writeError(w, err, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"room_id": result.RoomID,
		"unique":  contact.Unique,
	})
}

type contactItem struct {
	Unique string `json:"unique"`
	RoomID string `json:"room_id"`
}

func (s *Server) handleContactList(w http.ResponseWriter, r *http.Request) {
	unique := mux.Vars(r)["unique"]

	contacts, err := s.contacts.ListContacts(r.Context(), unique)
	if err != nil {
		writeError(w, err, "User not found")
		return
	}

	items := make([]contactItem, 0, len(contacts))
	for _, c := range contacts {
		items = append(items, contactItem{Unique: c.PeerUnique, RoomID: c.RoomID})
	}
	writeJSON(w, http.StatusOK, items)
}

type sendMessageRequest struct {
	Unique   string `json:"unique"`
	Message  string `json:"message"`
	FromUser string `json:"from_user"`
}

func (s *Server) handleMessageSend(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "")
		return
	}

	result, err := s.messages.Send(r.Context(), req.FromUser, req.Unique, req.Message)
	if err != nil {
		writeError(w, err, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Message sent successfully",
		"from":    result.Sender.Username,
		"to":      result.Recipient.Username,
	})
}

type messageItem struct {
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	unique := mux.Vars(r)["unique"]

	messages, err := s.messages.FetchUndeliveredAndMarkDelivered(r.Context(), unique)
	if err != nil {
		writeError(w, err, "User not found")
		return
	}

	items := make([]messageItem, 0, len(messages))
	for _, m := range messages {
		items = append(items, messageItem{
			Sender:    m.SenderUnique,
			Recipient: m.RecipientUnique,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type updateUserRequest struct {
	Unique    string  `json:"unique"`
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	AvatarKey *string `json:"avatar_key"`
}

func (s *Server) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, "")
		return
	}

	_, err := s.profiles.UpdateProfile(r.Context(), req.Unique, services.ProfileUpdate{
		Username:  req.Username,
		Email:     req.Email,
		AvatarKey: req.AvatarKey,
	})
	if err != nil {
		s.logger.Error(r.Context(), "user update failed", "unique", req.Unique, "error", err.Error())
		writeError(w, err, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "User details updated successfully"})
}

func (s *Server) handleAvatarUploadURL(w http.ResponseWriter, r *http.Request) {
	key, url, err := s.profiles.AvatarUploadURL(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), "avatar presign failed", "error", err.Error())
		writeError(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"key": key, "url": url})
}

// handleWS authenticates the session token from the query string, upgrades
// the connection and hands it to the hub.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "auth token required", http.StatusUnauthorized)
		return
	}

	unique, err := auth.GetUserUniqueFromToken(token, s.jwtSecret)
	if err != nil {
		http.Error(w, "invalid auth token", http.StatusUnauthorized)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error(r.Context(), "websocket upgrade failed", "error", err.Error())
		return
	}

	ws.NewClient(s.hub, conn, unique).Serve()
}
