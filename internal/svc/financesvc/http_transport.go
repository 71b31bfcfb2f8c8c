package financesvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/infra/logging"
	http_ "github.com/mkrupp/fintrack/internal/infra/transport/http"
	"github.com/mkrupp/fintrack/internal/repo/ledger"
	"github.com/mkrupp/fintrack/internal/svc/authsvc/authclient"
)

// ErrNoAvatarUpload is returned when an avatar upload carries no file.
var ErrNoAvatarUpload = errors.New("no avatar upload")

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig

	// MultipartFileName is the form field of avatar uploads.
	MultipartFileName string `env:"MULTIPART_FILE_NAME" envDefault:"avatar"`

	// MultipartFormMaxMemory is the part of a multipart form kept in memory.
	MultipartFormMaxMemory int64 `env:"MULTIPART_FORM_MAX_MEMORY" envDefault:"4194304"`
}

// HTTPTransport handles HTTP requests for the finance service.
// Every route requires a bearer token, which is validated by the auth provider.
type HTTPTransport struct {
	financeSvc *FinanceService
	authClient authclient.AuthClient
	log        logging.Logger
	cfg        HTTPTransportConfig
	handler    http.Handler
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport and sets up the routes:
//   - GET|POST /accounts, PATCH|DELETE /accounts/{id}
//   - GET|POST /categories, PATCH|DELETE /categories/{id}
//   - GET|POST /transactions, PATCH|DELETE /transactions/{id}, GET /transactions/stats
//   - GET|POST /bills, PATCH|DELETE /bills/{id}, POST /bills/{id}/pay
//   - GET /dashboard
//   - GET|PATCH /profile, GET|PUT|DELETE /profile/avatar
func NewHTTPTransport(
	financeSvc *FinanceService,
	authClient authclient.AuthClient,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	ht := &HTTPTransport{
		financeSvc: financeSvc,
		authClient: authClient,
		log:        logging.GetLogger("svc.financesvc.http_transport"),
		cfg:        cfg,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /accounts", ht.handle("list accounts", ht.handleListAccounts))
	mux.HandleFunc("POST /accounts", ht.handle("create account", ht.handleCreateAccount))
	mux.HandleFunc("PATCH /accounts/{id}", ht.handle("update account", ht.handleUpdateAccount))
	mux.HandleFunc("DELETE /accounts/{id}", ht.handle("delete account", ht.handleDelete(financeSvc.DeleteAccount)))

	mux.HandleFunc("GET /categories", ht.handle("list categories", ht.handleListCategories))
	mux.HandleFunc("POST /categories", ht.handle("create category", ht.handleCreateCategory))
	mux.HandleFunc("PATCH /categories/{id}", ht.handle("update category", ht.handleUpdateCategory))
	mux.HandleFunc("DELETE /categories/{id}", ht.handle("delete category", ht.handleDelete(financeSvc.DeleteCategory)))

	mux.HandleFunc("GET /transactions", ht.handle("list transactions", ht.handleListTransactions))
	mux.HandleFunc("GET /transactions/stats", ht.handle("transaction stats", ht.handleStats))
	mux.HandleFunc("POST /transactions", ht.handle("create transaction", ht.handleCreateTransaction))
	mux.HandleFunc("PATCH /transactions/{id}", ht.handle("update transaction", ht.handleUpdateTransaction))
	mux.HandleFunc("DELETE /transactions/{id}", ht.handle("delete transaction", ht.handleDelete(financeSvc.DeleteTransaction)))

	mux.HandleFunc("GET /bills", ht.handle("list bills", ht.handleListBills))
	mux.HandleFunc("POST /bills", ht.handle("create bill", ht.handleCreateBill))
	mux.HandleFunc("PATCH /bills/{id}", ht.handle("update bill", ht.handleUpdateBill))
	mux.HandleFunc("DELETE /bills/{id}", ht.handle("delete bill", ht.handleDelete(financeSvc.DeleteBill)))
	mux.HandleFunc("POST /bills/{id}/pay", ht.handle("pay bill", ht.handlePayBill))

	mux.HandleFunc("GET /dashboard", ht.handle("dashboard", ht.handleDashboard))

	mux.HandleFunc("GET /profile", ht.handle("get profile", ht.handleGetProfile))
	mux.HandleFunc("PATCH /profile", ht.handle("update profile", ht.handleUpdateProfile))
	mux.HandleFunc("GET /profile/avatar", ht.handle("get avatar", ht.handleGetAvatar))
	mux.HandleFunc("PUT /profile/avatar", ht.handle("upload avatar", ht.handleUploadAvatar))
	mux.HandleFunc("DELETE /profile/avatar", ht.handle("delete avatar", ht.handleDeleteAvatar))

	ht.handler = http_.AuthorizingMiddleware(mux, authClient, ht.log)

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.handler.ServeHTTP(w, r)
}

func (ht *HTTPTransport) handle(
	what string,
	fn func(http.ResponseWriter, *http.Request) error,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.Path))

		if err := fn(w, r); err != nil {
			log.WarnContext(r.Context(), what+" failed", "error", err)
			http_.WriteError(w, err)
		} else {
			log.DebugContext(r.Context(), what+" handled")
		}
	}
}

func (ht *HTTPTransport) handleDelete(del func(context.Context, string) error) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		if err := del(r.Context(), r.PathValue("id")); err != nil {
			return err
		}

		w.WriteHeader(http.StatusNoContent)

		return nil
	}
}

func decodeAndRespond[In any, Out any](
	w http.ResponseWriter,
	r *http.Request,
	status int,
	fn func(In) (Out, error),
) error {
	var in In
	if err := http_.DecodeJSON(r, &in); err != nil {
		return err
	}

	out, err := fn(in)
	if err != nil {
		return err
	}

	return http_.WriteJSON(w, status, out)
}

func respond[Out any](w http.ResponseWriter, out Out, err error) error {
	if err != nil {
		return err
	}

	return http_.WriteJSON(w, http.StatusOK, out)
}

func (ht *HTTPTransport) handleListAccounts(w http.ResponseWriter, r *http.Request) error {
	accounts, err := ht.financeSvc.ListAccounts(r.Context())

	return respond(w, accounts, err)
}

func (ht *HTTPTransport) handleCreateAccount(w http.ResponseWriter, r *http.Request) error {
	return decodeAndRespond(w, r, http.StatusCreated, func(in domain.Account) (*domain.Account, error) {
		return ht.financeSvc.CreateAccount(r.Context(), in)
	})
}

func (ht *HTTPTransport) handleUpdateAccount(w http.ResponseWriter, r *http.Request) error {
	return decodeAndRespond(w, r, http.StatusOK, func(in domain.AccountPatch) (*domain.Account, error) {
		return ht.financeSvc.UpdateAccount(r.Context(), r.PathValue("id"), in)
	})
}

func (ht *HTTPTransport) handleListCategories(w http.ResponseWriter, r *http.Request) error {
	categories, err := ht.financeSvc.ListCategories(r.Context())

	return respond(w, categories, err)
}

func (ht *HTTPTransport) handleCreateCategory(w http.ResponseWriter, r *http.Request) error {
	return decodeAndRespond(w, r, http.StatusCreated, func(in domain.Category) (*domain.Category, error) {
		return ht.financeSvc.CreateCategory(r.Context(), in)
	})
}

func (ht *HTTPTransport) handleUpdateCategory(w http.ResponseWriter, r *http.Request) error {
	return decodeAndRespond(w, r, http.StatusOK, func(in domain.CategoryPatch) (*domain.Category, error) {
		return ht.financeSvc.UpdateCategory(r.Context(), r.PathValue("id"), in)
	})
}

func (ht *HTTPTransport) handleListTransactions(w http.ResponseWriter, r *http.Request) error {
	var (
		filter ledger.TransactionFilter
		err    error
		query  = r.URL.Query()
	)

	if from := query.Get("from"); from != "" {
		if filter.From, err = domain.ParseDate(from); err != nil {
			return errors.Join(http_.ErrBadRequest, err)
		}
	}

	if to := query.Get("to"); to != "" {
		if filter.To, err = domain.ParseDate(to); err != nil {
			return errors.Join(http_.ErrBadRequest, err)
		}
	}

	if filter.Limit, err = intParam(r, "limit", 0); err != nil {
		return err
	}

	txs, err := ht.financeSvc.ListTransactions(r.Context(), filter)

	return respond(w, txs, err)
}

func (ht *HTTPTransport) handleStats(w http.ResponseWriter, r *http.Request) error {
	year, month, err := ht.monthParams(r)
	if err != nil {
		return err
	}

	stats, err := ht.financeSvc.MonthlyStats(r.Context(), year, month)

	return respond(w, stats, err)
}

func (ht *HTTPTransport) handleCreateTransaction(w http.ResponseWriter, r *http.Request) error {
	return decodeAndRespond(w, r, http.StatusCreated, func(in domain.Transaction) (*domain.Transaction, error) {
		return ht.financeSvc.CreateTransaction(r.Context(), in)
	})
}

func (ht *HTTPTransport) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) error {
	return decodeAndRespond(w, r, http.StatusOK, func(in domain.TransactionPatch) (*domain.Transaction, error) {
		return ht.financeSvc.UpdateTransaction(r.Context(), r.PathValue("id"), in)
	})
}

func (ht *HTTPTransport) handleListBills(w http.ResponseWriter, r *http.Request) error {
	bills, err := ht.financeSvc.ListBills(r.Context())

	return respond(w, bills, err)
}

func (ht *HTTPTransport) handleCreateBill(w http.ResponseWriter, r *http.Request) error {
	return decodeAndRespond(w, r, http.StatusCreated, func(in domain.Bill) (*domain.Bill, error) {
		return ht.financeSvc.CreateBill(r.Context(), in)
	})
}

func (ht *HTTPTransport) handleUpdateBill(w http.ResponseWriter, r *http.Request) error {
	return decodeAndRespond(w, r, http.StatusOK, func(in domain.BillPatch) (*domain.Bill, error) {
		return ht.financeSvc.UpdateBill(r.Context(), r.PathValue("id"), in)
	})
}

func (ht *HTTPTransport) handlePayBill(w http.ResponseWriter, r *http.Request) error {
	result, err := ht.financeSvc.PayBill(r.Context(), r.PathValue("id"))

	return respond(w, result, err)
}

func (ht *HTTPTransport) handleDashboard(w http.ResponseWriter, r *http.Request) error {
	year, month, err := ht.monthParams(r)
	if err != nil {
		return err
	}

	dashboard, err := ht.financeSvc.Dashboard(r.Context(), year, month)

	return respond(w, dashboard, err)
}

func (ht *HTTPTransport) handleGetProfile(w http.ResponseWriter, r *http.Request) error {
	profile, err := ht.financeSvc.GetProfile(r.Context())

	return respond(w, profile, err)
}

func (ht *HTTPTransport) handleUpdateProfile(w http.ResponseWriter, r *http.Request) error {
	return decodeAndRespond(w, r, http.StatusOK, func(in domain.ProfilePatch) (*domain.Profile, error) {
		return ht.financeSvc.UpdateProfile(r.Context(), in)
	})
}

func (ht *HTTPTransport) handleGetAvatar(w http.ResponseWriter, r *http.Request) error {
	width, err := intParam(r, "width", 0)
	if err != nil {
		return err
	}

	avatar, err := ht.financeSvc.Avatar(r.Context(), width)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", avatar.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(avatar.Data)))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Header().Set("ETag", `"`+avatar.ID.String()+`"`)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(avatar.Data); err != nil {
		ht.log.DebugContext(r.Context(), "write avatar failed", "error", err)
	}

	return nil
}

func (ht *HTTPTransport) handleUploadAvatar(w http.ResponseWriter, r *http.Request) error {
	maxSize := ht.financeSvc.avatarSvc.MaxSize()

	// Room for the multipart framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+64<<10)

	if err := r.ParseMultipartForm(ht.cfg.MultipartFormMaxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return domain.ErrAvatarTooLarge
		}

		return errors.Join(http_.ErrBadRequest, fmt.Errorf("parse multipart form: %w", err))
	}

	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(ht.cfg.MultipartFileName)
	if err != nil {
		return errors.Join(http_.ErrBadRequest, ErrNoAvatarUpload, err)
	}
	defer file.Close()

	if header.Size > maxSize {
		return domain.ErrAvatarTooLarge
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	profile, err := ht.financeSvc.UploadAvatar(r.Context(), header.Filename, data)

	return respond(w, profile, err)
}

func (ht *HTTPTransport) handleDeleteAvatar(w http.ResponseWriter, r *http.Request) error {
	profile, err := ht.financeSvc.DeleteAvatar(r.Context())

	return respond(w, profile, err)
}

// monthParams reads year and month from the query, defaulting to the current month.
func (ht *HTTPTransport) monthParams(r *http.Request) (int, time.Month, error) {
	today := ht.financeSvc.Today()

	year, err := intParam(r, "year", today.Year)
	if err != nil {
		return 0, 0, err
	}

	month, err := intParam(r, "month", int(today.Month))
	if err != nil {
		return 0, 0, err
	}

	return year, time.Month(month), nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", http_.ErrBadRequest, name, raw)
	}

	return v, nil
}
