package router

import (
	"net/http"

	"social-realtime-backend/internal/api"
	"social-realtime-backend/internal/api/endpoints"
	"social-realtime-backend/internal/api/middleware"
)

func RealtimeRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		realtimeEndpoints := endpoints.NewRealtimeEndpoints(s.Handler(), s.Hub())

		mux.HandleFunc(prefix+"/ws", s.MakeHTTPHandleFunc(realtimeEndpoints.Websocket))
		mux.HandleFunc(prefix+"/rooms", s.MakeHTTPHandleFunc(realtimeEndpoints.Rooms, middleware.ValidateUserJWT))
	}
}
