// Package router wires the HTTP surface: the middleware stack (logging,
// CORS, gzip, the authentication gate) and every resource handler. The
// handlers consult the access policy for authorization decisions and map
// the failure taxonomy onto fixed HTTP statuses.
package router

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/linknest/internal/accesspolicy"
	"github.com/patric-chuzhbe/linknest/internal/auth"
	"github.com/patric-chuzhbe/linknest/internal/db/storage"
	"github.com/patric-chuzhbe/linknest/internal/gzippedhttp"
	"github.com/patric-chuzhbe/linknest/internal/ipchecker"
	"github.com/patric-chuzhbe/linknest/internal/link"
	"github.com/patric-chuzhbe/linknest/internal/logger"
	"github.com/patric-chuzhbe/linknest/internal/models"
	"github.com/patric-chuzhbe/linknest/internal/user"
)

const recentUsersLimit = 10

type authenticator interface {
	Register(ctx context.Context, username, rawPassword string) (*user.User, error)
	Login(ctx context.Context, username, rawPassword string) (string, error)
	Authenticate(h http.Handler) http.Handler
}

type linksRemover interface {
	EnqueueJob(job *models.LinkDeleteJob)
}

// Router holds the dependencies shared by all HTTP handlers.
type Router struct {
	db                storage.Storage
	auth              authenticator
	linksRemover      linksRemover
	ipChecker         *ipchecker.IPChecker
	corsAllowedOrigin string
	validate          *validator.Validate
}

// New assembles the chi mux with the full middleware stack and route table.
func New(
	db storage.Storage,
	authHandler authenticator,
	remover linksRemover,
	ipChecker *ipchecker.IPChecker,
	corsAllowedOrigin string,
) *chi.Mux {
	theRouter := &Router{
		db:                db,
		auth:              authHandler,
		linksRemover:      remover,
		ipChecker:         ipChecker,
		corsAllowedOrigin: corsAllowedOrigin,
		validate:          validator.New(),
	}

	mux := chi.NewRouter()
	mux.Use(logger.WithLoggingHTTPMiddleware)
	mux.Use(theRouter.corsMiddleware)
	mux.Use(gzippedhttp.UngzipRequest)
	mux.Use(gzippedhttp.GzipResponse)
	mux.Use(authHandler.Authenticate)

	mux.Post(`/api/auth/register`, theRouter.PostApiauthregister)
	mux.Post(`/api/auth/login`, theRouter.PostApiauthlogin)

	mux.Get(`/api/links`, theRouter.GetApilinks)
	mux.Post(`/api/links`, theRouter.PostApilinks)
	mux.Delete(`/api/links`, theRouter.DeleteApilinks)
	mux.Get(`/api/links/analytics`, theRouter.GetApilinksanalytics)
	mux.Get(`/api/links/public/{username}`, theRouter.GetApilinkspublic)
	mux.Put(`/api/links/{linkID}`, theRouter.PutApilink)
	mux.Delete(`/api/links/{linkID}`, theRouter.DeleteApilink)
	mux.Post(`/api/links/{linkID}/click`, theRouter.PostApilinkclick)

	mux.Get(`/api/profile`, theRouter.GetApiprofile)
	mux.Put(`/api/profile`, theRouter.PutApiprofile)
	mux.Get(`/api/profile/public/{username}`, theRouter.GetApiprofilepublic)

	mux.Get(`/api/admin/stats`, theRouter.GetApiadminstats)
	mux.Get(`/api/admin/users`, theRouter.GetApiadminusers)
	mux.Get(`/api/admin/users/recent`, theRouter.GetApiadminusersrecent)
	mux.Get(`/api/admin/growth`, theRouter.GetApiadmingrowth)
	mux.Post(`/api/admin/users/{username}/toggle-admin`, theRouter.PostApiadmintoggleadmin)

	mux.Get(`/ping`, theRouter.GetPing)
	mux.Get(`/api/internal/stats`, theRouter.GetApiinternalstats)

	return mux
}

func (router *Router) corsMiddleware(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		origin := request.Header.Get("Origin")
		if origin != "" && (router.corsAllowedOrigin == "*" || origin == router.corsAllowedOrigin) {
			response.Header().Set("Access-Control-Allow-Origin", origin)
			response.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			response.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			response.Header().Set("Access-Control-Allow-Credentials", "true")
			response.Header().Add("Vary", "Origin")
		}

		if request.Method == http.MethodOptions {
			response.WriteHeader(http.StatusNoContent)

			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

func (router *Router) writeJSON(response http.ResponseWriter, statusCode int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder().Encode()`: ", zap.Error(err))
	}
}

func (router *Router) rollback(transaction *sql.Tx) {
	if err := router.db.RollbackTransaction(transaction); err != nil {
		logger.Log.Debugln("Error calling the `router.db.RollbackTransaction()`: ", zap.Error(err))
	}
}

func (router *Router) decodeAndValidate(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return err
	}

	return router.validate.Struct(target)
}

// identityFromRequest returns the gate-published identity. A protected
// route without one means the gate was bypassed, which is a server-side
// wiring error, but the caller still only sees 401.
func identityFromRequest(request *http.Request) (auth.Identity, bool) {
	return auth.IdentityFromContext(request.Context())
}

// PostApiauthregister creates a new account.
func (router *Router) PostApiauthregister(response http.ResponseWriter, request *http.Request) {
	registerRequest := models.RegisterRequest{}
	if err := router.decodeAndValidate(request, &registerRequest); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)

		return
	}

	created, err := router.auth.Register(request.Context(), registerRequest.Username, registerRequest.Password)
	if errors.Is(err, auth.ErrUsernameTaken) {
		http.Error(response, err.Error(), http.StatusConflict)

		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `router.auth.Register()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	router.writeJSON(response, http.StatusCreated, created)
}

// PostApiauthlogin verifies credentials and answers with a bearer token.
func (router *Router) PostApiauthlogin(response http.ResponseWriter, request *http.Request) {
	loginRequest := models.LoginRequest{}
	if err := router.decodeAndValidate(request, &loginRequest); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)

		return
	}

	tokenString, err := router.auth.Login(request.Context(), loginRequest.Username, loginRequest.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		http.Error(response, err.Error(), http.StatusUnauthorized)

		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `router.auth.Login()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	router.writeJSON(response, http.StatusOK, models.LoginResponse{Token: tokenString})
}

// GetApilinks lists the caller's own links.
func (router *Router) GetApilinks(response http.ResponseWriter, request *http.Request) {
	identity, ok := identityFromRequest(request)
	if !ok {
		response.WriteHeader(http.StatusUnauthorized)

		return
	}

	links, err := router.db.GetUserLinks(request.Context(), identity.Username)
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetUserLinks()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	router.writeJSON(response, http.StatusOK, links)
}

// PostApilinks creates a link owned by the caller.
func (router *Router) PostApilinks(response http.ResponseWriter, request *http.Request) {
	identity, ok := identityFromRequest(request)
	if !ok {
		response.WriteHeader(http.StatusUnauthorized)

		return
	}

	linkRequest := models.LinkRequest{}
	if err := router.decodeAndValidate(request, &linkRequest); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)

		return
	}

	category := linkRequest.Category
	if category == "" {
		category = link.CategoryOther
	}

	created, err := router.db.CreateLink(
		request.Context(),
		&link.Link{
			ID:        uuid.New().String(),
			Owner:     identity.Username,
			Title:     linkRequest.Title,
			URL:       linkRequest.URL,
			Category:  category,
			CreatedAt: time.Now(),
		},
		nil,
	)
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.CreateLink()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	router.writeJSON(response, http.StatusCreated, created)
}

// PutApilink updates a link's title, URL and category. Owner only.
func (router *Router) PutApilink(response http.ResponseWriter, request *http.Request) {
	identity, ok := identityFromRequest(request)
	if !ok {
		response.WriteHeader(http.StatusUnauthorized)

		return
	}

	existing, err := router.db.GetLinkByID(request.Context(), chi.URLParam(request, "linkID"))
	if errors.Is(err, storage.ErrNotFound) {
		response.WriteHeader(http.StatusNotFound)

		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetLinkByID()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	if !accesspolicy.CanMutateLink(identity, existing.Owner) {
		http.Error(response, "you don't have permission to update this link", http.StatusForbidden)

		return
	}

	linkRequest := models.LinkRequest{}
	if err := router.decodeAndValidate(request, &linkRequest); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)

		return
	}

	existing.Title = linkRequest.Title
	existing.URL = linkRequest.URL
	if linkRequest.Category != "" {
		existing.Category = linkRequest.Category
	}

	if err := router.db.UpdateLink(request.Context(), existing, nil); err != nil {
		logger.Log.Debugln("Error calling the `router.db.UpdateLink()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	router.writeJSON(response, http.StatusOK, existing)
}

// DeleteApilink removes a single link. Owner only.
func (router *Router) DeleteApilink(response http.ResponseWriter, request *http.Request) {
	identity, ok := identityFromRequest(request)
	if !ok {
		response.WriteHeader(http.StatusUnauthorized)

		return
	}

	existing, err := router.db.GetLinkByID(request.Context(), chi.URLParam(request, "linkID"))
	if errors.Is(err, storage.ErrNotFound) {
		response.WriteHeader(http.StatusNotFound)

		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetLinkByID()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	if !accesspolicy.CanMutateLink(identity, existing.Owner) {
		http.Error(response, "you don't have permission to delete this link", http.StatusForbidden)

		return
	}

	if err := router.db.DeleteLink(request.Context(), existing.ID); err != nil {
		logger.Log.Debugln("Error calling the `router.db.DeleteLink()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	response.WriteHeader(http.StatusNoContent)
}

// DeleteApilinks queues a batch of the caller's links for background
// deletion and answers immediately. Ownership is re-checked at flush time
// by the owner predicate of the batch delete.
func (router *Router) DeleteApilinks(response http.ResponseWriter, request *http.Request) {
	identity, ok := identityFromRequest(request)
	if !ok {
		response.WriteHeader(http.StatusUnauthorized)

		return
	}

	deleteRequest := models.DeleteLinksRequest{}
	if err := json.NewDecoder(request.Body).Decode(&deleteRequest); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)

		return
	}
	if len(deleteRequest) == 0 {
		http.Error(response, "no link IDs given", http.StatusBadRequest)

		return
	}

	router.linksRemover.EnqueueJob(&models.LinkDeleteJob{
		Owner:         identity.Username,
		LinksToDelete: deleteRequest,
	})

	response.WriteHeader(http.StatusAccepted)
}

// PostApilinkclick increments a link's click counter.
func (router *Router) PostApilinkclick(response http.ResponseWriter, request *http.Request) {
	clickCount, err := router.db.RegisterLinkClick(request.Context(), chi.URLParam(request, "linkID"), time.Now())
	if errors.Is(err, storage.ErrNotFound) {
		response.WriteHeader(http.StatusNotFound)

		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.RegisterLinkClick()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	router.writeJSON(
		response,
		http.StatusOK,
		models.ClickResponse{
			Success:    true,
			ClickCount: clickCount,
		},
	)
}

// GetApilinksanalytics aggregates click statistics over the caller's links.
func (router *Router) GetApilinksanalytics(response http.ResponseWriter, request *http.Request) {
	identity, ok := identityFromRequest(request)
	if !ok {
		response.WriteHeader(http.StatusUnauthorized)

		return
	}

	links, err := router.db.GetUserLinks(request.Context(), identity.Username)
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetUserLinks()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	var totalClicks int64
	clicksByCategory := map[string]int64{}
	for _, lnk := range links {
		totalClicks += lnk.ClickCount
		category := lnk.Category
		if category == "" {
			category = link.CategoryOther
		}
		clicksByCategory[category] += lnk.ClickCount
	}

	sorted := make([]*link.Link, len(links))
	copy(sorted, links)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ClickCount > sorted[j].ClickCount
	})

	topLinks := []models.TopLink{}
	for i, lnk := range sorted {
		if i >= 5 {
			break
		}
		topLinks = append(
			topLinks,
			models.TopLink{
				ID:          lnk.ID,
				Title:       lnk.Title,
				ClickCount:  lnk.ClickCount,
				LastClicked: lnk.LastClicked,
			},
		)
	}

	router.writeJSON(
		response,
		http.StatusOK,
		models.AnalyticsResponse{
			TotalLinks:       int64(len(links)),
			TotalClicks:      totalClicks,
			TopLinks:         topLinks,
			ClicksByCategory: clicksByCategory,
		},
	)
}

// GetApilinkspublic lists a user's links for anonymous visitors.
// Private profiles answer 403 regardless of whether the links exist.
func (router *Router) GetApilinkspublic(response http.ResponseWriter, request *http.Request) {
	owner, err := router.db.GetUserByUsername(request.Context(), chi.URLParam(request, "username"), nil)
	if errors.Is(err, storage.ErrNotFound) {
		response.WriteHeader(http.StatusNotFound)

		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetUserByUsername()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	identity, _ := identityFromRequest(request)
	if !accesspolicy.CanReadLink(identity, owner.Username, owner.IsPublic) {
		http.Error(response, "this profile is private", http.StatusForbidden)

		return
	}

	links, err := router.db.GetUserLinks(request.Context(), owner.Username)
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetUserLinks()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	router.writeJSON(response, http.StatusOK, links)
}

func (router *Router) profileResponse(ctx context.Context, usr *user.User) (*models.ProfileResponse, error) {
	linkCount, err := router.db.CountUserLinks(ctx, usr.Username)
	if err != nil {
		return nil, err
	}

	return &models.ProfileResponse{
		Username:    usr.Username,
		DisplayName: usr.DisplayName,
		Bio:         usr.Bio,
		AvatarURL:   usr.AvatarURL,
		Theme:       usr.Theme,
		IsPublic:    usr.IsPublic,
		LinkCount:   linkCount,
		CreatedAt:   usr.CreatedAt,
	}, nil
}

// resolveIdentity loads the account behind the token subject. A token
// whose subject no longer exists authenticates nothing, hence 401.
func (router *Router) resolveIdentity(response http.ResponseWriter, request *http.Request) (*user.User, bool) {
	identity, ok := identityFromRequest(request)
	if !ok {
		response.WriteHeader(http.StatusUnauthorized)

		return nil, false
	}

	usr, err := router.db.GetUserByUsername(request.Context(), identity.Username, nil)
	if errors.Is(err, storage.ErrNotFound) {
		response.WriteHeader(http.StatusUnauthorized)

		return nil, false
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetUserByUsername()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return nil, false
	}

	return usr, true
}

// GetApiprofile answers with the caller's own profile.
func (router *Router) GetApiprofile(response http.ResponseWriter, request *http.Request) {
	usr, ok := router.resolveIdentity(response, request)
	if !ok {
		return
	}

	profile, err := router.profileResponse(request.Context(), usr)
	if err != nil {
		logger.Log.Debugln("Error calling the `router.profileResponse()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	router.writeJSON(response, http.StatusOK, profile)
}

// PutApiprofile applies a partial profile update. Only fields present in
// the request change; the theme is restricted to the recognized values by
// validation.
func (router *Router) PutApiprofile(response http.ResponseWriter, request *http.Request) {
	usr, ok := router.resolveIdentity(response, request)
	if !ok {
		return
	}

	updateRequest := models.ProfileUpdateRequest{}
	if err := router.decodeAndValidate(request, &updateRequest); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)

		return
	}

	if updateRequest.DisplayName != nil {
		usr.DisplayName = *updateRequest.DisplayName
	}
	if updateRequest.Bio != nil {
		usr.Bio = *updateRequest.Bio
	}
	if updateRequest.AvatarURL != nil {
		usr.AvatarURL = *updateRequest.AvatarURL
	}
	if updateRequest.Theme != nil {
		usr.Theme = *updateRequest.Theme
	}
	if updateRequest.IsPublic != nil {
		usr.IsPublic = *updateRequest.IsPublic
	}

	if err := router.db.UpdateUser(request.Context(), usr, nil); err != nil {
		logger.Log.Debugln("Error calling the `router.db.UpdateUser()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	profile, err := router.profileResponse(request.Context(), usr)
	if err != nil {
		logger.Log.Debugln("Error calling the `router.profileResponse()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	router.writeJSON(response, http.StatusOK, profile)
}

// GetApiprofilepublic answers with the anonymous view of a public profile.
func (router *Router) GetApiprofilepublic(response http.ResponseWriter, request *http.Request) {
	owner, err := router.db.GetUserByUsername(request.Context(), chi.URLParam(request, "username"), nil)
	if errors.Is(err, storage.ErrNotFound) {
		response.WriteHeader(http.StatusNotFound)

		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetUserByUsername()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	identity, _ := identityFromRequest(request)
	if !accesspolicy.CanReadLink(identity, owner.Username, owner.IsPublic) {
		http.Error(response, "this profile is private", http.StatusForbidden)

		return
	}

	linkCount, err := router.db.CountUserLinks(request.Context(), owner.Username)
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.CountUserLinks()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	router.writeJSON(
		response,
		http.StatusOK,
		models.PublicProfileResponse{
			Username:    owner.Username,
			DisplayName: owner.DisplayName,
			Bio:         owner.Bio,
			AvatarURL:   owner.AvatarURL,
			Theme:       owner.Theme,
			LinkCount:   linkCount,
		},
	)
}

// requireAdmin terminates the request with 403 unless the caller's token
// carries the admin claim.
func (router *Router) requireAdmin(response http.ResponseWriter, request *http.Request) bool {
	identity, ok := identityFromRequest(request)
	if !ok {
		response.WriteHeader(http.StatusUnauthorized)

		return false
	}

	if !accesspolicy.IsAdmin(identity) {
		http.Error(response, "access denied: admin only", http.StatusForbidden)

		return false
	}

	return true
}

// GetApiadminstats answers with service-wide usage statistics.
func (router *Router) GetApiadminstats(response http.ResponseWriter, request *http.Request) {
	if !router.requireAdmin(response, request) {
		return
	}

	totalUsers, err := router.db.GetNumberOfUsers(request.Context())
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetNumberOfUsers()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	totalLinks, err := router.db.GetNumberOfLinks(request.Context())
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetNumberOfLinks()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	users, err := router.db.GetAllUsers(request.Context())
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetAllUsers()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	var activeUsers, recentRegistrations int64
	weekAgo := time.Now().AddDate(0, 0, -7)
	for _, usr := range users {
		linkCount, err := router.db.CountUserLinks(request.Context(), usr.Username)
		if err != nil {
			logger.Log.Debugln("Error calling the `router.db.CountUserLinks()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)

			return
		}
		if linkCount > 0 {
			activeUsers++
		}
		if usr.CreatedAt.After(weekAgo) {
			recentRegistrations++
		}
	}

	var averageLinksPerUser float64
	if totalUsers > 0 {
		averageLinksPerUser = math.Round(float64(totalLinks)/float64(totalUsers)*10) / 10
	}

	router.writeJSON(
		response,
		http.StatusOK,
		models.AdminStatsResponse{
			TotalUsers:          totalUsers,
			TotalLinks:          totalLinks,
			ActiveUsers:         activeUsers,
			RecentRegistrations: recentRegistrations,
			AverageLinksPerUser: averageLinksPerUser,
		},
	)
}

func (router *Router) adminUserViews(ctx context.Context, users []*user.User) ([]models.AdminUserView, error) {
	result := []models.AdminUserView{}
	for _, usr := range users {
		linkCount, err := router.db.CountUserLinks(ctx, usr.Username)
		if err != nil {
			return nil, err
		}
		result = append(
			result,
			models.AdminUserView{
				Username:    usr.Username,
				DisplayName: usr.DisplayName,
				LinkCount:   linkCount,
				IsAdmin:     usr.IsAdmin,
				IsPublic:    usr.IsPublic,
				CreatedAt:   usr.CreatedAt,
			},
		)
	}

	return result, nil
}

// GetApiadminusers lists every user with their link counts.
func (router *Router) GetApiadminusers(response http.ResponseWriter, request *http.Request) {
	if !router.requireAdmin(response, request) {
		return
	}

	users, err := router.db.GetAllUsers(request.Context())
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetAllUsers()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	views, err := router.adminUserViews(request.Context(), users)
	if err != nil {
		logger.Log.Debugln("Error calling the `router.adminUserViews()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	router.writeJSON(response, http.StatusOK, views)
}

// GetApiadminusersrecent lists the latest registrations.
func (router *Router) GetApiadminusersrecent(response http.ResponseWriter, request *http.Request) {
	if !router.requireAdmin(response, request) {
		return
	}

	users, err := router.db.GetAllUsers(request.Context())
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetAllUsers()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	if len(users) > recentUsersLimit {
		users = users[:recentUsersLimit]
	}

	views, err := router.adminUserViews(request.Context(), users)
	if err != nil {
		logger.Log.Debugln("Error calling the `router.adminUserViews()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	router.writeJSON(response, http.StatusOK, views)
}

// GetApiadmingrowth groups the last 30 days of registrations by day.
func (router *Router) GetApiadmingrowth(response http.ResponseWriter, request *http.Request) {
	if !router.requireAdmin(response, request) {
		return
	}

	users, err := router.db.GetAllUsers(request.Context())
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetAllUsers()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	monthAgo := time.Now().AddDate(0, 0, -30)
	countsByDate := map[string]int64{}
	for _, usr := range users {
		if !usr.CreatedAt.After(monthAgo) {
			continue
		}
		countsByDate[usr.CreatedAt.Format("2006-01-02")]++
	}

	result := []models.GrowthPoint{}
	for date, count := range countsByDate {
		result = append(result, models.GrowthPoint{Date: date, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})

	router.writeJSON(response, http.StatusOK, result)
}

// PostApiadmintoggleadmin flips a user's admin flag. The change reaches
// tokens only at the next login; outstanding tokens keep their snapshot
// until expiry.
func (router *Router) PostApiadmintoggleadmin(response http.ResponseWriter, request *http.Request) {
	if !router.requireAdmin(response, request) {
		return
	}

	transaction, err := router.db.BeginTransaction()
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.BeginTransaction()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	// The read and the write share one transaction so two concurrent
	// toggles cannot interleave into a lost update.
	usr, err := router.db.GetUserByUsername(request.Context(), chi.URLParam(request, "username"), transaction)
	if errors.Is(err, storage.ErrNotFound) {
		router.rollback(transaction)
		response.WriteHeader(http.StatusNotFound)

		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetUserByUsername()`: ", zap.Error(err))
		router.rollback(transaction)
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	usr.IsAdmin = !usr.IsAdmin
	if err := router.db.UpdateUser(request.Context(), usr, transaction); err != nil {
		logger.Log.Debugln("Error calling the `router.db.UpdateUser()`: ", zap.Error(err))
		router.rollback(transaction)
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	if err := router.db.CommitTransaction(transaction); err != nil {
		logger.Log.Debugln("Error calling the `router.db.CommitTransaction()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	router.writeJSON(
		response,
		http.StatusOK,
		models.ToggleAdminResponse{
			Success:  true,
			Username: usr.Username,
			IsAdmin:  usr.IsAdmin,
		},
	)
}

// GetPing reports storage health.
func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.db.Ping(request.Context()); err != nil {
		logger.Log.Debugln("Error calling the `router.db.Ping()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetApiinternalstats serves raw usage counters to the trusted subnet.
// Without a configured subnet the endpoint is closed.
func (router *Router) GetApiinternalstats(response http.ResponseWriter, request *http.Request) {
	if router.ipChecker == nil || router.ipChecker.Disabled() {
		response.WriteHeader(http.StatusForbidden)

		return
	}

	clientIP, err := router.ipChecker.ClientIP(request)
	if err != nil || !router.ipChecker.Trusted(clientIP) {
		response.WriteHeader(http.StatusForbidden)

		return
	}

	users, err := router.db.GetNumberOfUsers(request.Context())
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetNumberOfUsers()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	links, err := router.db.GetNumberOfLinks(request.Context())
	if err != nil {
		logger.Log.Debugln("Error calling the `router.db.GetNumberOfLinks()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)

		return
	}

	router.writeJSON(
		response,
		http.StatusOK,
		models.InternalStatsResponse{
			Users: users,
			Links: links,
		},
	)
}
