package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/coldboot/bigcache/bigcache"
	"github.com/coldboot/bigcache/simulator"
	"github.com/coldboot/bigcache/trace"
)

var (
	serveAddr        string
	serveProfileFile string
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins; this is a local analysis tool.
		return true
	},
}

// clientMessage is a request from a websocket client.
type clientMessage struct {
	Type            string                    `json:"type"` // "simulate" or "profiles"
	Profile         string                    `json:"profile,omitempty"`
	ProfileSpec     *simulator.StorageProfile `json:"profileSpec,omitempty"`
	PreheatPercents []float64                 `json:"preheatPercents,omitempty"`
	Params          *simulator.Params         `json:"params,omitempty"`
}

// serverMessage is a response to a websocket client.
type serverMessage struct {
	Type     string                              `json:"type"`
	Report   simulator.Report                    `json:"report,omitempty"`
	Profiles map[string]simulator.StorageProfile `json:"profiles,omitempty"`
	Error    string                              `json:"error,omitempty"`
}

// wsSession answers simulate requests over one websocket connection. The
// trace records and profile table are read-only, so sessions share them
// without locking.
type wsSession struct {
	records  []trace.Record
	profiles map[string]simulator.StorageProfile
}

func (s *wsSession) handle(conn *websocket.Conn) {
	defer conn.Close()
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Warnf("websocket read: %v", err)
			}
			return
		}
		reply := s.dispatch(msg)
		if err := conn.WriteJSON(reply); err != nil {
			logrus.Warnf("websocket write: %v", err)
			return
		}
	}
}

func (s *wsSession) dispatch(msg clientMessage) serverMessage {
	switch msg.Type {
	case "profiles":
		return serverMessage{Type: "profiles", Profiles: s.profiles}
	case "simulate":
		report, err := s.simulate(msg)
		if err != nil {
			return serverMessage{Type: "error", Error: err.Error()}
		}
		updatePromMetrics(report)
		return serverMessage{Type: "result", Report: report}
	default:
		return serverMessage{Type: "error", Error: "unknown message type " + msg.Type}
	}
}

func (s *wsSession) simulate(msg clientMessage) (simulator.Report, error) {
	profiles := s.profiles
	if msg.ProfileSpec != nil {
		profiles = map[string]simulator.StorageProfile{msg.ProfileSpec.Name: *msg.ProfileSpec}
	} else if msg.Profile != "" {
		p, ok := s.profiles[msg.Profile]
		if !ok {
			return nil, simulator.ErrInvalidConfig("unknown storage profile " + msg.Profile)
		}
		profiles = map[string]simulator.StorageProfile{msg.Profile: p}
	}

	params := simulator.DefaultParams()
	if msg.Params != nil {
		params = *msg.Params
	}
	percents := msg.PreheatPercents
	if len(percents) == 0 {
		percents = []float64{0, 25, 50, 75, 100}
	}

	start := time.Now()
	report, err := simulator.EvaluateAll(s.records, profiles, params, percents)
	if err != nil {
		return nil, err
	}
	simulationsRun.Inc()
	logrus.Debugf("evaluated %d cells in %v", len(report), time.Since(start))
	return report, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve <trace.csv>",
	Short: "Serve interactive what-if simulations over websocket, with Prometheus metrics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := trace.Load(args[0])
		if err != nil {
			return err
		}
		profiles, err := selectProfiles("all", serveProfileFile)
		if err != nil {
			return err
		}
		session := &wsSession{records: loaded.Records, profiles: profiles}

		initPromMetrics()
		traceRecordsGauge.Set(float64(len(loaded.Records)))
		distinctPagesGauge.Set(float64(bigcache.DistinctPageCount(loaded.Records)))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				logrus.Warnf("websocket upgrade: %v", err)
				return
			}
			go session.handle(conn)
		})
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]int{
				"records": len(session.records),
			})
		})

		logrus.Infof("serving %d trace records on %s (websocket /ws, metrics /metrics)", len(loaded.Records), serveAddr)
		return http.ListenAndServe(serveAddr, mux)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveProfileFile, "profile-file", "", "YAML file overriding the builtin storage profiles")
}
