package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"ordersapi/src/auth"
)

// AccountHeader carries the subscriber account number on gated routes.
const AccountHeader = "X-Account-No"

// SubscriberChecker answers whether an account number belongs to a subscriber.
type SubscriberChecker interface {
	IsValidSubscriber(ctx context.Context, accountNo string) (bool, error)
}

type subscriberStatus struct {
	AccountNo string `json:"accountNo"`
	Valid     bool   `json:"valid"`
}

func SubscriberHandler(repo SubscriberChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountNo := chi.URLParam(r, "accountNo")

		valid, err := repo.IsValidSubscriber(r.Context(), accountNo)
		if err != nil {
			writeError(w, "Subscriber", err)
			return
		}

		writeSuccess(w, http.StatusOK, subscriberStatus{AccountNo: accountNo, Valid: valid})
	}
}

// RequireSubscriber rejects requests whose AccountHeader does not name a known
// subscriber and stores the account number in the request context otherwise.
func RequireSubscriber(repo SubscriberChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountNo := r.Header.Get(AccountHeader)
			if accountNo == "" {
				writeFailure(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			valid, err := repo.IsValidSubscriber(r.Context(), accountNo)
			if err != nil {
				writeError(w, "RequireSubscriber", err)
				return
			}
			if !valid {
				logger.WithField("account_no", accountNo).Info("rejected unknown subscriber")
				writeFailure(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithAccount(r.Context(), accountNo)))
		})
	}
}
