package spider

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dszqbsm/xoso/dom"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type Fetcher interface {
	/*
	   输入一个上下文和一个URL，输出解析好的文档树和一个错误

	   该方法是唯一接触网络的边界，失败时返回*FetchError，调用方原样向上传递
	*/
	Fetch(ctx context.Context, url string) (*dom.Node, error)
}

// 采集失败的错误，StatusCode为0表示请求没有拿到响应
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status code %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// 基于net/http的采集器，支持限速、随机休眠、代理、重试和字符集转换
type HTTPFetcher struct {
	options
	client *http.Client
}

/*
输入一个或多个配置，输出一个采集器实例

该方法用于创建采集器，配置了代理时复制默认Transport再设置代理，不修改全局的http.DefaultTransport
*/
func NewFetchService(opts ...Option) *HTTPFetcher {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	client := &http.Client{
		Timeout: options.Timeout,
	}

	if options.Proxy != nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = options.Proxy
		client.Transport = transport
	}

	return &HTTPFetcher{options: options, client: client}
}

/*
输入一个上下文和一个URL，输出文档树和一个错误

先经过限速器取得令牌，然后按指数退避重试发起请求，状态码为4xx或页面无法解析时不再重试
*/
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*dom.Node, error) {
	var doc *dom.Node

	operation := func() error {
		body, err := f.get(ctx, url)
		if err != nil {
			var fe *FetchError
			if errors.As(err, &fe) && fe.StatusCode >= 400 && fe.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		doc, err = dom.Parse(body)
		if err != nil {
			return backoff.Permanent(&FetchError{URL: url, Err: err})
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(f.Retries, 0))), ctx)

	notify := func(err error, d time.Duration) {
		f.logger.Warn("fetch failed, retrying",
			zap.String("url", url),
			zap.Duration("after", d),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &FetchError{URL: url, Err: err}
	}

	return doc, nil
}

// 发起一次GET请求，返回转换为UTF-8的响应体
func (f *HTTPFetcher) get(ctx context.Context, url string) (io.Reader, error) {
	if f.Limit != nil {
		if err := f.Limit.Wait(ctx); err != nil {
			return nil, &FetchError{URL: url, Err: err}
		}
	}

	// 随机休眠，模拟人类行为
	if f.WaitTime > 0 {
		sleep := time.Duration(rand.Int63n(int64(f.WaitTime)))
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return nil, &FetchError{URL: url, Err: ctx.Err()}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("get url failed:%w", err)}
	}
	req.Header.Set("User-Agent", f.UserAgent)
	if len(f.Cookie) > 0 {
		req.Header.Set("Cookie", f.Cookie)
	}

	f.logger.Debug("fetch", zap.String("url", url))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	bodyReader := bufio.NewReader(resp.Body)
	e := DeterminEncoding(bodyReader, resp.Header.Get("Content-Type"))
	utf8Reader := transform.NewReader(bodyReader, e.NewDecoder())

	// 读完再返回，保证Body关闭前内容已全部取出
	body, err := io.ReadAll(utf8Reader)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return bytes.NewReader(body), nil
}

/*
输入一个带缓冲的读取器和响应的Content-Type，输出推断出的编码

该方法用于窥探响应体前1024字节推断字符集，响应体不足1024字节时使用已读到的部分，什么都读不到时按UTF-8处理
*/
func DeterminEncoding(r *bufio.Reader, contentType string) encoding.Encoding {
	head, err := r.Peek(1024)
	if err != nil && len(head) == 0 {
		if err != io.EOF {
			zap.L().Error("peek body failed", zap.Error(err))
		}
		return unicode.UTF8
	}

	e, _, _ := charset.DetermineEncoding(head, contentType)

	return e
}
