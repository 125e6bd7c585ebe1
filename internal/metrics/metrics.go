package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ost_downloader_fetch_attempts_total",
		Help: "Total number of outbound HTTP attempts",
	})

	FetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ost_downloader_fetch_retries_total",
		Help: "Total number of outbound HTTP retries",
	})

	FetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ost_downloader_fetch_failures_total",
		Help: "Total number of outbound HTTP requests that failed for good",
	})

	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ost_downloader_sessions_started_total",
		Help: "Total number of album download sessions started",
	})

	SessionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ost_downloader_sessions_finished_total",
		Help: "Total number of album download sessions finished, by terminal status",
	}, []string{"status"})

	TracksSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ost_downloader_tracks_succeeded_total",
		Help: "Total number of tracks saved to disk",
	})

	TracksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ost_downloader_tracks_failed_total",
		Help: "Total number of tracks that could not be resolved or saved",
	})

	TrackDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ost_downloader_track_duration_seconds",
		Help:    "Track download duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	DownloadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ost_downloader_download_bytes_total",
		Help: "Total bytes written to disk",
	})

	StreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ost_downloader_stream_requests_total",
		Help: "Total number of stream proxy requests, by relayed status",
	}, []string{"status"})
)
