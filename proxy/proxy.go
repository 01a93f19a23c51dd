package proxy

import (
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
)

type ProxyFunc func(*http.Request) (*url.URL, error)

type roundRobinSwitcher struct {
	proxyURLs []*url.URL
	index     uint32
}

/*
输入一个http.Request，输出一个url.URL和一个error。

该方法用于实现代理服务器的轮询调度，它会根据当前的轮询索引选择一个代理服务器，并返回该服务器的URL。
*/
func (r *roundRobinSwitcher) GetProxy(pr *http.Request) (*url.URL, error) {
	if len(r.proxyURLs) == 0 {
		return nil, errors.New("empty proxy urls")
	}
	index := atomic.AddUint32(&r.index, 1) - 1
	u := r.proxyURLs[index%uint32(len(r.proxyURLs))]
	return u, nil
}

/*
输入一个代理服务器地址列表，输出一个代理服务器切换函数和一个error。

列表为空时返回nil函数且不报错，表示直连；任意地址无法解析时返回错误
*/
func RoundRobinProxySwitcher(proxyURLs ...string) (ProxyFunc, error) {
	if len(proxyURLs) == 0 {
		return nil, nil
	}
	urls := make([]*url.URL, len(proxyURLs))
	for i, u := range proxyURLs {
		parsedU, err := url.Parse(u)
		if err != nil {
			return nil, err
		}
		if parsedU.Scheme == "" || parsedU.Host == "" {
			return nil, errors.New("invalid proxy url: " + u)
		}
		urls[i] = parsedU
	}
	return (&roundRobinSwitcher{proxyURLs: urls}).GetProxy, nil
}
