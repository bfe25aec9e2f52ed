package server

import (
	"io"
	"net/http"

	apperrors "github.com/jrsteele09/planter-dashboard/internal/errors"
	"github.com/jrsteele09/planter-dashboard/server/views"
)

// AWSStatusHandler renders the polled AWS indicator.
func (s *Server) AWSStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := authState(r)
		in := s.aws.Resolve(r.Context(), state.AccessToken, state.UserID)
		s.render(w, http.StatusOK, func(out io.Writer) error {
			return views.AWSIndicator(out, in)
		})
	}
}

// AWSConnectHandler opens the AWS modal: a summary when connected, the account form otherwise.
func (s *Server) AWSConnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := authState(r)
		in := s.aws.Resolve(r.Context(), state.AccessToken, state.UserID)
		s.render(w, http.StatusOK, func(out io.Writer) error {
			return views.AWSModal(out, views.AWSModalState{Integration: in, AccountID: in.AccountID})
		})
	}
}

func (s *Server) AWSCloseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
}

// AWSSetupHandler validates the account id and shows the CloudFormation steps.
func (s *Server) AWSSetupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "400 - Bad Request", http.StatusBadRequest)
			return
		}
		state := authState(r)
		modal := views.AWSModalState{AccountID: r.PostFormValue("accountId")}

		launch, err := s.aws.Setup(r.Context(), state.AccessToken, state.UserID, modal.AccountID)
		switch {
		case err == nil:
			modal.Launch = launch
		case apperrors.Is(err, apperrors.ErrValidation):
			modal.Error = err.Error()
		default:
			modal.Error = msgAWSSetupFailed
		}

		s.render(w, http.StatusOK, func(out io.Writer) error {
			return views.AWSModal(out, modal)
		})
	}
}
