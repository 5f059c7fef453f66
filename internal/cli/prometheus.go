package cli

import (
	"net/http"

	"github.com/amine-amaach/simulators/uaMonitor/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"
)

// metricsHandler serves reg on /metrics. With users configured the endpoint
// requires basic auth; passwords are only kept as bcrypt hashes.
func metricsHandler(reg *prometheus.Registry, users []config.User) (http.Handler, error) {
	var handler http.Handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	if len(users) > 0 {
		hashes, err := encryptPasswords(users)
		if err != nil {
			return nil, err
		}
		handler = basicAuth(hashes, handler)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	return mux, nil
}

func encryptPasswords(users []config.User) (map[string][]byte, error) {
	hashes := make(map[string][]byte, len(users))
	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), 8)
		if err != nil {
			return nil, err
		}
		hashes[u.Username] = hash
	}
	return hashes, nil
}

func basicAuth(hashes map[string][]byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if ok {
			if hash, known := hashes[user]; known && bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil {
				next.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="uamonitor"`)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	})
}
