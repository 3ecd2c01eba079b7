package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/spf13/cast"
	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/middleware"
	"gitlab.com/timkado/api/storefront-access-service/internal/application"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/crypto"
)

// Handlers exposes the agent's services to local UI clients.
type Handlers struct {
	sessions  *application.SessionService
	access    *application.PermissionResolver
	favorites *application.FavoritesSynchronizer
	products  *application.ProductResolver
	logger    domain.Logger
}

// NewHandlers creates the HTTP handlers.
func NewHandlers(sessions *application.SessionService, access *application.PermissionResolver, favorites *application.FavoritesSynchronizer, products *application.ProductResolver, logger domain.Logger) *Handlers {
	if sessions == nil || access == nil || favorites == nil || products == nil {
		panic("nil service passed to NewHandlers")
	}
	if logger == nil {
		panic("logger is nil in NewHandlers")
	}
	return &Handlers{
		sessions:  sessions,
		access:    access,
		favorites: favorites,
		products:  products,
		logger:    logger,
	}
}

// Register mounts every /v1 route on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/session", h.login)
	mux.HandleFunc("DELETE /v1/session", h.logout)
	mux.HandleFunc("GET /v1/session", h.session)

	mux.HandleFunc("GET /v1/access/permissions", h.permissions)
	mux.HandleFunc("GET /v1/access/super-admin", h.superAdmin)
	mux.HandleFunc("GET /v1/access/check", h.check)
	mux.HandleFunc("GET /v1/access/pages", h.pages)
	mux.HandleFunc("GET /v1/access/pages/{page}", h.page)
	mux.HandleFunc("DELETE /v1/access/cache", h.clearAccessCache)

	mux.HandleFunc("GET /v1/favorites", h.listFavorites)
	mux.HandleFunc("DELETE /v1/favorites", h.clearFavorites)
	mux.HandleFunc("DELETE /v1/favorites/auth-prompt", h.dismissAuthPrompt)
	mux.HandleFunc("GET /v1/favorites/{productID}", h.isFavorite)
	mux.HandleFunc("POST /v1/favorites/{productID}", h.addFavorite)
	mux.HandleFunc("DELETE /v1/favorites/{productID}", h.removeFavorite)
	mux.HandleFunc("POST /v1/favorites/{productID}/toggle", h.toggleFavorite)

	mux.HandleFunc("GET /v1/products", h.resolveProducts)

	mux.Handle("GET /v1/admin/{page}", middleware.RequirePage(h.access, "", h.logger)(http.HandlerFunc(h.adminPage)))
}

// LoginRequest is the payload of POST /v1/session.
type LoginRequest struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Token    string `json:"token"`
	AuthMode string `json:"authMode"`
}

// SessionResponse describes the stored identity. The token itself is never returned.
type SessionResponse struct {
	Authenticated    bool   `json:"authenticated"`
	UserID           string `json:"userId,omitempty"`
	Email            string `json:"email,omitempty"`
	Role             string `json:"role,omitempty"`
	AuthMode         string `json:"authMode,omitempty"`
	TokenFingerprint string `json:"tokenFingerprint,omitempty"`
}

func toSessionResponse(id domain.Identity) SessionResponse {
	return SessionResponse{
		Authenticated:    id.Authenticated(),
		UserID:           id.UserID,
		Email:            id.Email,
		Role:             id.Role,
		AuthMode:         string(id.AuthMode),
		TokenFingerprint: crypto.TokenFingerprint(id.Token),
	}
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn(r.Context(), "Failed to decode /v1/session payload", "error", err.Error())
		domain.NewErrorResponse(domain.ErrBadRequest, "Invalid request payload", err.Error()).WriteJSON(w, http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(req.UserID) == "" {
		domain.NewErrorResponse(domain.ErrBadRequest, "Invalid payload", "userId is required.").WriteJSON(w, http.StatusBadRequest)
		return
	}
	mode := domain.AuthMode(req.AuthMode)
	if mode != "" && mode != domain.AuthModeCustomer && mode != domain.AuthModeAdmin {
		domain.NewErrorResponse(domain.ErrBadRequest, "Invalid payload", "authMode must be 'customer' or 'admin'.").WriteJSON(w, http.StatusBadRequest)
		return
	}

	identity := domain.Identity{
		UserID:   strings.TrimSpace(req.UserID),
		Email:    req.Email,
		Role:     req.Role,
		Token:    req.Token,
		AuthMode: mode,
	}
	if err := h.sessions.Login(r.Context(), identity); err != nil {
		h.logger.Error(r.Context(), "Failed to store session", "error", err.Error())
		domain.NewErrorResponse(domain.ErrInternal, "Failed to store session", "The identity could not be persisted.").WriteJSON(w, http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toSessionResponse(h.sessions.Current(r.Context())))
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		// The in-memory state is already reset; only the persisted identity may linger.
		h.logger.Warn(r.Context(), "Session cleared with storage errors", "error", err.Error())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, toSessionResponse(h.sessions.Current(r.Context())))
}

func (h *Handlers) permissions(w http.ResponseWriter, r *http.Request) {
	force := cast.ToBool(r.URL.Query().Get("refresh"))
	h.writeJSON(w, r, http.StatusOK, h.access.GetUserPermissions(r.Context(), force))
}

func (h *Handlers) superAdmin(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]bool{"isSuperAdmin": h.access.IsSuperAdmin(r.Context())})
}

// CheckResponse is the result of a single permission check.
type CheckResponse struct {
	Resource string        `json:"resource"`
	Action   domain.Action `json:"action"`
	Allowed  bool          `json:"allowed"`
}

func (h *Handlers) check(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resource := q.Get("resource")
	action := domain.Action(q.Get("action"))
	if resource == "" || !action.Valid() {
		domain.NewErrorResponse(domain.ErrBadRequest, "Invalid query", "resource and a valid action (read, create, update, delete, manage) are required.").
			WriteJSON(w, http.StatusBadRequest)
		return
	}
	h.writeJSON(w, r, http.StatusOK, CheckResponse{
		Resource: resource,
		Action:   action,
		Allowed:  h.access.HasPermission(r.Context(), resource, action),
	})
}

func (h *Handlers) pages(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string][]string{"pages": h.access.GetAccessiblePages(r.Context())})
}

// PageResponse reports access to one back-office page.
type PageResponse struct {
	Page    string `json:"page"`
	Allowed bool   `json:"allowed"`
}

func (h *Handlers) page(w http.ResponseWriter, r *http.Request) {
	page := r.PathValue("page")
	h.writeJSON(w, r, http.StatusOK, PageResponse{Page: page, Allowed: h.access.CanAccessPage(r.Context(), page)})
}

func (h *Handlers) clearAccessCache(w http.ResponseWriter, r *http.Request) {
	h.access.ClearPermissionsCache(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// FavoritesResponse is the favorites state of the current owner.
type FavoritesResponse struct {
	Owner             string   `json:"owner"`
	Items             []string `json:"items"`
	Count             int      `json:"count"`
	AuthPromptPending bool     `json:"authPromptPending"`
}

func (h *Handlers) favoritesResponse() FavoritesResponse {
	st := h.favorites.State()
	items := st.Items
	if items == nil {
		items = []string{}
	}
	return FavoritesResponse{
		Owner:             h.favorites.Owner(),
		Items:             items,
		Count:             st.Count,
		AuthPromptPending: h.favorites.AuthPromptPending(),
	}
}

func (h *Handlers) listFavorites(w http.ResponseWriter, r *http.Request) {
	if cast.ToBool(r.URL.Query().Get("refresh")) {
		h.favorites.Load(r.Context())
	}
	h.writeJSON(w, r, http.StatusOK, h.favoritesResponse())
}

func (h *Handlers) isFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("productID")
	h.writeJSON(w, r, http.StatusOK, map[string]any{"productId": id, "favorite": h.favorites.IsFavorite(id)})
}

func (h *Handlers) addFavorite(w http.ResponseWriter, r *http.Request) {
	h.finishMutation(w, r, h.favorites.AddToFavorites(r.Context(), r.PathValue("productID")))
}

func (h *Handlers) removeFavorite(w http.ResponseWriter, r *http.Request) {
	h.finishMutation(w, r, h.favorites.RemoveFromFavorites(r.Context(), r.PathValue("productID")))
}

func (h *Handlers) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	h.finishMutation(w, r, h.favorites.ToggleFavorite(r.Context(), r.PathValue("productID")))
}

func (h *Handlers) clearFavorites(w http.ResponseWriter, r *http.Request) {
	h.finishMutation(w, r, h.favorites.ClearFavorites(r.Context()))
}

func (h *Handlers) dismissAuthPrompt(w http.ResponseWriter, r *http.Request) {
	h.favorites.DismissAuthPrompt()
	w.WriteHeader(http.StatusNoContent)
}

// finishMutation maps the synchronizer's boolean outcome onto a status code.
func (h *Handlers) finishMutation(w http.ResponseWriter, r *http.Request, ok bool) {
	switch {
	case ok:
		h.writeJSON(w, r, http.StatusOK, h.favoritesResponse())
	case !h.sessions.Current(r.Context()).Authenticated():
		domain.NewErrorResponse(domain.ErrUnauthorized, "Sign-in required", "Favorites can only be changed by a signed-in user.").
			WriteJSON(w, http.StatusUnauthorized)
	default:
		domain.NewErrorResponse(domain.ErrBadGateway, "Favorites update failed", "The storefront rejected or did not answer the request; favorites are unchanged.").
			WriteJSON(w, http.StatusBadGateway)
	}
}

func (h *Handlers) resolveProducts(w http.ResponseWriter, r *http.Request) {
	ids := splitIDs(r.URL.Query().Get("ids"))
	if len(ids) == 0 {
		domain.NewErrorResponse(domain.ErrBadRequest, "Invalid query", "ids must list at least one product id.").WriteJSON(w, http.StatusBadRequest)
		return
	}
	items := h.products.Resolve(r.Context(), ids)
	h.writeJSON(w, r, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handlers) adminPage(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, PageResponse{Page: r.PathValue("page"), Allowed: true})
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error(r.Context(), "Failed to encode response", "path", r.URL.Path, "error", err.Error())
	}
}
