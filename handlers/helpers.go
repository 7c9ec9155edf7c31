package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/Ljimmex/NexArenav2-sub001/brackets"
	"github.com/Ljimmex/NexArenav2-sub001/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

func strconvError(param, raw string) error {
	return fmt.Errorf("invalid %s parameter: %q", param, raw)
}

const maxLogoSize = 5 << 20 // 5MB

func logoFromRequest(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLogoSize)
	if err := r.ParseMultipartForm(maxLogoSize); err != nil {
		return nil, nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		return nil, nil, errors.New(`logo file is required in field "logo"`)
	}
	return file, header, nil
}

func getIDFromURL(r *http.Request, param string) (int, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s parameter: %q", param, raw)
	}
	return id, nil
}

// mapServiceErrorToHTTP translates service layer sentinels into HTTP statuses.
// Anything unrecognized is a 500 with the details kept server-side.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrParticipantNotFound),
		errors.Is(err, services.ErrMatchNotFound):
		notFoundResponse(w, r)

	case errors.Is(err, services.ErrBracketAlreadyExists),
		errors.Is(err, services.ErrConcurrentModification),
		errors.Is(err, services.ErrDownstreamAlreadyFinalized),
		errors.Is(err, services.ErrFeederMatchUndecided),
		errors.Is(err, services.ErrUserEmailConflict),
		errors.Is(err, services.ErrUserNicknameConflict),
		errors.Is(err, services.ErrParticipantNameConflict),
		errors.Is(err, services.ErrTournamentNameConflict),
		errors.Is(err, services.ErrTournamentFull):
		conflictResponse(w, r, err.Error())

	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrTournamentNameRequired),
		errors.Is(err, services.ErrTournamentInvalidRegDate),
		errors.Is(err, services.ErrTournamentInvalidDateRange),
		errors.Is(err, services.ErrTournamentInvalidCapacity),
		errors.Is(err, services.ErrMatchNotFinalized),
		errors.Is(err, services.ErrMatchNotReopenable),
		errors.Is(err, services.ErrScheduleTimeRequired),
		errors.Is(err, services.ErrScheduleTimeInPast),
		errors.Is(err, services.ErrResultPayloadInvalid),
		errors.Is(err, brackets.ErrInvalidTransition),
		errors.Is(err, brackets.ErrMissingParticipant),
		errors.Is(err, brackets.ErrAmbiguousResult),
		errors.Is(err, brackets.ErrWinnerNotInMatch),
		errors.Is(err, brackets.ErrInvalidParticipantCount),
		errors.Is(err, brackets.ErrInvalidGroupCount),
		errors.Is(err, brackets.ErrDuplicateSeed),
		errors.Is(err, brackets.ErrSeedOutOfRange),
		errors.Is(err, brackets.ErrMissingSeed):
		badRequestResponse(w, r, err)

	case errors.Is(err, services.ErrAuthInvalidCredentials):
		unauthorizedResponse(w, r, err.Error())
	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrRegistrationNotOpen):
		forbiddenResponse(w, r, err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}
