package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/carelink/backend/api/handler"
	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/internal/access"
	"github.com/carelink/backend/internal/middleware"
	"github.com/carelink/backend/pkg/metrics"
)

// Operation names double as metric labels.
const (
	OpAuthRefresh      = "auth.refresh"
	OpAuthLogout       = "auth.logout"
	OpAccountGet       = "account.get"
	OpAccountUpdate    = "account.update"
	OpAdminUsersList   = "admin.users.list"
	OpAdminUsersStatus = "admin.users.status"
	OpProfileGet       = "profile.get"
	OpProfileUpdate    = "profile.update"
	OpDirectoryList    = "directory.list"
	OpPostsList        = "posts.list"
	OpPostsGet         = "posts.get"
	OpPostsCreate      = "posts.create"
	OpPostsUpdate      = "posts.update"
	OpPostsDelete      = "posts.delete"
	OpDonationsRecord  = "donations.record"
	OpDonationsMine    = "donations.mine"
	OpDonationsList    = "donations.list"
)

// Policies declares the access policy of every protected operation.
func Policies() *access.Table {
	t := access.NewTable()

	for _, op := range []string{
		OpAuthRefresh, OpAuthLogout,
		OpAccountGet, OpAccountUpdate,
		OpDirectoryList,
		OpPostsList, OpPostsGet,
		OpDonationsMine,
	} {
		t.Declare(op, access.DefaultPolicy())
	}

	admin := access.Allow(domain.RoleAdmin).Active()
	t.Declare(OpAdminUsersList, admin)
	t.Declare(OpAdminUsersStatus, admin)

	providers := access.Allow(domain.ProviderRoles()...)
	t.Declare(OpProfileGet, providers)
	t.Declare(OpProfileUpdate, providers)

	authors := access.Allow(domain.RoleDoctor, domain.RoleHospital, domain.RoleHealthAuthorization, domain.RoleAdmin).Active()
	t.Declare(OpPostsCreate, authors)
	t.Declare(OpPostsUpdate, authors)
	t.Declare(OpPostsDelete, authors)

	t.Declare(OpDonationsRecord, access.Allow(domain.RoleBloodBank, domain.RoleHospital).Active())
	t.Declare(OpDonationsList, access.Allow(domain.RoleBloodBank, domain.RoleHospital, domain.RoleHealthAuthorization, domain.RoleAdmin).Active())

	return t
}

type Handlers struct {
	Auth     *apiHandler.AuthHandler
	Account  *apiHandler.AccountHandler
	Profile  *apiHandler.ProfileHandler
	Post     *apiHandler.PostHandler
	Donation *apiHandler.DonationHandler
	Health   *apiHandler.HealthHandler
}

// Options carries the cross-cutting pieces the routes are wrapped with.
// Metrics may be nil; LoginLimiter may be nil to disable throttling.
type Options struct {
	Policies      *access.Table
	Metrics       *metrics.Metrics
	ExposeMetrics bool
	LoginLimiter  *middleware.IPRateLimiter
	Logger        *zap.Logger
}

func New(handlers Handlers, opts Options) *router.Router {
	if opts.Policies == nil {
		opts.Policies = Policies()
	}
	r := router.New()

	protect := func(op string, h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return opts.Metrics.Instrument(op, middleware.Authorize(opts.Policies, op, opts.Metrics, opts.Logger)(h))
	}
	public := func(op string, h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return opts.Metrics.Instrument(op, h)
	}

	r.GET("/health", handlers.Health.Check)
	if opts.ExposeMetrics && opts.Metrics != nil {
		r.GET("/metrics", opts.Metrics.Handler())
	}

	login := handlers.Auth.Login
	if opts.LoginLimiter != nil {
		login = opts.LoginLimiter.Middleware(login)
	}

	v1 := r.Group("/api/v1")

	v1.POST("/auth/register", public("auth.register", handlers.Auth.Register))
	v1.POST("/auth/login", public("auth.login", login))
	v1.POST("/auth/refresh", protect(OpAuthRefresh, handlers.Auth.Refresh))
	v1.POST("/auth/logout", protect(OpAuthLogout, handlers.Auth.Logout))

	v1.GET("/account", protect(OpAccountGet, handlers.Account.Get))
	v1.PUT("/account", protect(OpAccountUpdate, handlers.Account.Update))

	v1.GET("/admin/users", protect(OpAdminUsersList, handlers.Account.List))
	v1.PUT("/admin/users/{id}/status", protect(OpAdminUsersStatus, handlers.Account.SetStatus))

	v1.GET("/profile", protect(OpProfileGet, handlers.Profile.GetProfile))
	v1.PUT("/profile", protect(OpProfileUpdate, handlers.Profile.UpdateProfile))
	v1.GET("/directory/{role}", protect(OpDirectoryList, handlers.Profile.Directory))

	v1.GET("/posts", protect(OpPostsList, handlers.Post.List))
	v1.POST("/posts", protect(OpPostsCreate, handlers.Post.Create))
	v1.GET("/posts/{id}", protect(OpPostsGet, handlers.Post.Get))
	v1.PUT("/posts/{id}", protect(OpPostsUpdate, handlers.Post.Update))
	v1.DELETE("/posts/{id}", protect(OpPostsDelete, handlers.Post.Delete))

	v1.POST("/donations", protect(OpDonationsRecord, handlers.Donation.Record))
	v1.GET("/donations", protect(OpDonationsList, handlers.Donation.List))
	v1.GET("/donations/me", protect(OpDonationsMine, handlers.Donation.Mine))

	return r
}
