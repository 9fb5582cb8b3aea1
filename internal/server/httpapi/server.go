// Package httpapi exposes the HTTP contract over the services. Handlers are
// thin: decode, call one service operation, translate the error taxonomy to
// a status code. No domain error escapes unhandled.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mzhurin/convo/internal/logging"
	"github.com/mzhurin/convo/internal/server/models"
	"github.com/mzhurin/convo/internal/server/services"
	"github.com/mzhurin/convo/internal/server/ws"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients connect from arbitrary origins; auth is the token.
		return true
	},
}

type identitySvc interface {
	Register(ctx context.Context, username, email, password string) (*models.User, string, error)
	Login(ctx context.Context, username, password string) (*models.User, string, error)
	FindByCredentials(ctx context.Context, username, email string) (*models.User, error)
}

type contactSvc interface {
	AddMutualContact(ctx context.Context, currentUnique, contactUnique string) (*services.AddContactResult, error)
	ListContacts(ctx context.Context, ownerUnique string) ([]*models.Contact, error)
}

type messageSvc interface {
	Send(ctx context.Context, senderUnique, recipientUnique, content string) (*services.SendResult, error)
	FetchUndeliveredAndMarkDelivered(ctx context.Context, recipientUnique string) ([]*models.Message, error)
}

type profileSvc interface {
	UpdateProfile(ctx context.Context, unique string, update services.ProfileUpdate) (*models.User, error)
	AvatarUploadURL(ctx context.Context) (string, string, error)
}

type Server struct {
	identity  identitySvc
	messages  messageSvc
	contacts  contactSvc
	profiles  profileSvc
	hub       *ws.Hub
	jwtSecret []byte
	logger    logging.Logger
}

func NewServer(
	identity *services.IdentityService,
	messages *services.MessageService,
	contacts *services.ContactService,
	profiles *services.ProfileService,
	hub *ws.Hub,
	secretKey string,
	logger logging.Logger,
) *Server {
	return &Server{
		identity:  identity,
		messages:  messages,
		contacts:  contacts,
		profiles:  profiles,
		hub:       hub,
		jwtSecret: []byte(secretKey),
		logger:    logger.With("module", "httpapi"),
	}
}

// Router binds the public endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	r.HandleFunc("/contact/lookup", s.handleContactLookup).Methods(http.MethodPost)
	r.HandleFunc("/contact/add", s.handleContactAdd).Methods(http.MethodPost)
	r.HandleFunc("/contacts/{unique}", s.handleContactList).Methods(http.MethodGet)

	r.HandleFunc("/message/send", s.handleMessageSend).Methods(http.MethodPost)
	r.HandleFunc("/messages/{unique}", s.handleMessages).Methods(http.MethodGet)

	r.HandleFunc("/user/update", s.handleUserUpdate).Methods(http.MethodPost)
	r.HandleFunc("/user/avatar/upload-url", s.handleAvatarUploadURL).Methods(http.MethodPost)

	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	return r
}
