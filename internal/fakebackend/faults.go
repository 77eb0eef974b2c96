package fakebackend

import (
	"net/http"
	"sync"

	"github.com/benvon/smart-calendar/internal/handlers"
	"github.com/benvon/smart-calendar/internal/middleware"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Route names the endpoints faults can be injected into
type Route string

const (
	RouteListEvents  Route = handlers.RouteListEvents
	RouteAddEvent    Route = handlers.RouteAddEvent
	RouteDeleteEvent Route = handlers.RouteDeleteEvent
	RouteGenerate    Route = handlers.RouteGenerate
	RouteHealth      Route = handlers.RouteHealth
)

type fault struct {
	status    int
	remaining int
}

// faults answers the next requests of a route with a fixed status
type faults struct {
	mu     sync.Mutex
	byName map[Route]*fault
	calls  map[Route]int
}

func newFaults() *faults {
	return &faults{byName: make(map[Route]*fault), calls: make(map[Route]int)}
}

func (f *faults) inject(route Route, status, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if times <= 0 {
		delete(f.byName, route)
		return
	}
	f.byName[route] = &fault{status: status, remaining: times}
}

func (f *faults) count(route Route) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

// take records a call and returns the status to fail it with, or 0
func (f *faults) take(route Route) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[route]++
	ft, ok := f.byName[route]
	if !ok {
		return 0
	}
	ft.remaining--
	if ft.remaining <= 0 {
		delete(f.byName, route)
	}
	return ft.status
}

func (f *faults) middleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := mux.CurrentRoute(r)
			if route == nil {
				next.ServeHTTP(w, r)
				return
			}
			if status := f.take(Route(route.GetName())); status != 0 {
				middleware.RespondError(w, r, status, http.StatusText(status), "Injected fault", logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
