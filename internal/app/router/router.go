// Package router maps application paths to screens and their guards.
package router

import (
	"strings"

	"github.com/mkrupp/fintrack/internal/app/guard"
)

// Screen identifies what a route renders.
type Screen string

const (
	ScreenLanding        Screen = "landing"
	ScreenLogin          Screen = "login"
	ScreenRegister       Screen = "register"
	ScreenForgotPassword Screen = "forgot-password"
	ScreenResetPassword  Screen = "reset-password"
	ScreenDashboard      Screen = "dashboard"
	ScreenTransactions   Screen = "transactions"
	ScreenCategories     Screen = "categories"
	ScreenAccounts       Screen = "accounts"
	ScreenBills          Screen = "bills"
	ScreenReports        Screen = "reports"
	ScreenSettings       Screen = "settings"
	ScreenNotFound       Screen = "not-found"
)

// Paths of the routes that are not named in package guard.
const (
	LandingPath        = "/"
	RegisterPath       = "/register"
	ForgotPasswordPath = "/forgot-password"
	ResetPasswordPath  = "/reset-password"
	TransactionsPath   = "/transactions"
	CategoriesPath     = "/categories"
	AccountsPath       = "/accounts"
	BillsPath          = "/bills"
	ReportsPath        = "/reports"
	SettingsPath       = "/settings"
)

// Route binds a path to a screen and the guard protecting it.
type Route struct {
	Path   string
	Screen Screen
	Guard  guard.Kind
	// Title is shown in navigation menus. Empty for routes that are not listed.
	Title string
}

var routes = []Route{
	{Path: LandingPath, Screen: ScreenLanding, Guard: guard.Public},
	{Path: guard.LoginPath, Screen: ScreenLogin, Guard: guard.GuestOnly},
	{Path: RegisterPath, Screen: ScreenRegister, Guard: guard.GuestOnly},
	{Path: ForgotPasswordPath, Screen: ScreenForgotPassword, Guard: guard.GuestOnly},
	{Path: ResetPasswordPath, Screen: ScreenResetPassword, Guard: guard.Public},
	{Path: guard.DashboardPath, Screen: ScreenDashboard, Guard: guard.AuthenticatedOnly, Title: "Dashboard"},
	{Path: TransactionsPath, Screen: ScreenTransactions, Guard: guard.AuthenticatedOnly, Title: "Transactions"},
	{Path: CategoriesPath, Screen: ScreenCategories, Guard: guard.AuthenticatedOnly, Title: "Categories"},
	{Path: AccountsPath, Screen: ScreenAccounts, Guard: guard.AuthenticatedOnly, Title: "Accounts"},
	{Path: BillsPath, Screen: ScreenBills, Guard: guard.AuthenticatedOnly, Title: "Bills"},
	{Path: ReportsPath, Screen: ScreenReports, Guard: guard.AuthenticatedOnly, Title: "Reports"},
	{Path: SettingsPath, Screen: ScreenSettings, Guard: guard.AuthenticatedOnly, Title: "Settings"},
}

// Routes returns the route table in declaration order.
func Routes() []Route {
	return append([]Route(nil), routes...)
}

// Menu returns the routes listed in the navigation menu.
func Menu() []Route {
	var menu []Route

	for _, r := range routes {
		if r.Title != "" {
			menu = append(menu, r)
		}
	}

	return menu
}

// Match returns the route for path. Query strings, fragments and a trailing
// slash are ignored. Unknown paths yield the public not-found route.
func Match(path string) Route {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	if path == "" {
		path = LandingPath
	}

	for _, r := range routes {
		if r.Path == path {
			return r
		}
	}

	return Route{Path: path, Screen: ScreenNotFound, Guard: guard.Public}
}

// Resolve matches path and decides its guard for state. For a Deny the returned
// route is the redirect target.
func Resolve(path string, state guard.State) (Route, guard.Decision) {
	route := Match(path)
	decision := guard.Decide(state, route.Guard)

	if decision.Outcome == guard.Deny {
		return Match(decision.RedirectTo), decision
	}

	return route, decision
}
