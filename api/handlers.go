package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/dszqbsm/xoso/spider"
	"github.com/dszqbsm/xoso/storage/sqlstorage"
	"github.com/dszqbsm/xoso/version"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultPage  = 1
	defaultLimit = 30
	defaultDays  = 30
)

// 日期前缀：YYYY、YYYY-MM或YYYY-MM-DD
var datePrefixRe = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2})?)?$`)

// 历史分页的元信息
type Meta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	TotalPages  int `json:"total_pages"`
}

type HistoryResponse struct {
	Data []*spider.Result `json:"data"`
	Meta Meta             `json:"meta"`
}

type CrawlRequest struct {
	Type string `json:"type"` // daily或history
	Days int    `json:"days"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Lottery API Service",
		"version": version.GetVersion(),
		"docs":    "/api/results/:region/latest",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"ip":        r.RemoteAddr,
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	region, ok := regionParam(w, r)
	if !ok {
		return
	}
	res, err := s.results.Latest(r.Context(), region)
	if errors.Is(err, sqlstorage.ErrNotFound) {
		jsonError(w, "No results found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	region, ok := regionParam(w, r)
	if !ok {
		return
	}
	page := positiveInt(r.URL.Query().Get("page"), defaultPage)
	limit := positiveInt(r.URL.Query().Get("limit"), defaultLimit)
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	results, total, err := s.results.History(r.Context(), region, page, limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		Data: results,
		Meta: Meta{
			CurrentPage: page,
			PerPage:     limit,
			Total:       total,
			TotalPages:  (total + limit - 1) / limit,
		},
	})
}

func (s *Server) handleByDate(w http.ResponseWriter, r *http.Request) {
	region, ok := regionParam(w, r)
	if !ok {
		return
	}
	date := chi.URLParam(r, "date")
	if !datePrefixRe.MatchString(date) {
		jsonError(w, fmt.Sprintf("invalid date %q, want YYYY-MM-DD", date), http.StatusBadRequest)
		return
	}
	results, err := s.results.ByDate(r.Context(), region, date)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

/*
每日抓取同步执行并返回结果数；历史补抓在后台执行，立即返回
*/
func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	req := CrawlRequest{Type: "daily", Days: defaultDays}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	switch req.Type {
	case "daily":
		results, err := s.crawler.CrawlDaily(r.Context())
		resp := map[string]interface{}{
			"message": "Daily crawl started",
			"count":   len(results),
		}
		if err != nil {
			s.logger.Warn("manual daily crawl finished with errors", zap.Error(err))
			resp["error"] = err.Error()
		}
		writeJSON(w, http.StatusOK, resp)
	case "history":
		if req.Days <= 0 {
			req.Days = defaultDays
		}
		s.wg.Add(1)
		go func(days int) {
			defer s.wg.Done()
			if _, err := s.crawler.CrawlHistory(s.bg, days); err != nil {
				s.logger.Error("manual history crawl failed", zap.Error(err))
			}
		}(req.Days)
		writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Historical crawl for %d days started in background", req.Days),
		})
	default:
		jsonError(w, "Invalid crawl type", http.StatusBadRequest)
	}
}

// 最近的抓取日志，按时间倒序
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := positiveInt(r.URL.Query().Get("limit"), defaultLimit)
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	logs, err := s.logs.RecentLogs(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if logs == nil {
		logs = []spider.CrawlLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func regionParam(w http.ResponseWriter, r *http.Request) (spider.Region, bool) {
	region, err := spider.ParseRegion(chi.URLParam(r, "region"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return region, true
}

// 解析正整数查询参数，缺失或非法时返回默认值
func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	jsonError(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"message": message})
}
