package api

// 对外的HTTP接口：查询开奖结果、触发抓取以及websocket实时推送

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dszqbsm/xoso/auth"
	"github.com/dszqbsm/xoso/spider"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// 结果查询
type ResultReader interface {
	Latest(ctx context.Context, region spider.Region) (*spider.Result, error)
	History(ctx context.Context, region spider.Region, page, limit int) ([]*spider.Result, int, error)
	ByDate(ctx context.Context, region spider.Region, datePrefix string) ([]*spider.Result, error)
}

// 抓取日志查询
type CrawlLogReader interface {
	RecentLogs(ctx context.Context, limit int) ([]spider.CrawlLog, error)
}

// 手动触发抓取
type CrawlTrigger interface {
	CrawlDaily(ctx context.Context) ([]*spider.Result, error)
	CrawlHistory(ctx context.Context, days int) (int, error)
}

type Server struct {
	options
	router  chi.Router
	results ResultReader
	crawler CrawlTrigger

	// 后台历史补抓使用的上下文，Close时取消
	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewServer(results ResultReader, crawler CrawlTrigger, opts ...Option) *Server {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	s := &Server{
		options: options,
		results: results,
		crawler: crawler,
	}
	s.bg, s.cancel = context.WithCancel(context.Background())
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// 取消并等待后台任务退出
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(requestLogger(s.logger))

	r.Get("/", s.handleIndex)
	r.Get("/api/health", s.handleHealth)

	r.Route("/api/results", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.NewAuthWrapper(s.adminToken))
			r.Post("/admin/crawl", s.handleCrawl)
			if s.logs != nil {
				r.Get("/admin/logs", s.handleLogs)
			}
		})
		r.Get("/{region}/latest", s.handleLatest)
		r.Get("/{region}/history", s.handleHistory)
		r.Get("/{region}/{date}", s.handleByDate)
	})

	if s.live != nil {
		r.Handle("/ws", s.live)
	}

	s.router = r
}

// 记录每个请求的方法、路径、状态码和耗时
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
