package netsvr

import (
	"net/http"

	"github.com/zintix-labs/rocklab/server/app"
)

// NetSvr 路由 + 服務啟停，只給最外層組裝使用；其他層只面向 NetRouter。
// 實作 app.Component，可直接交給 app.App 管理生命週期。
type NetSvr interface {
	NetRouter
	app.Component
	Address() string
	Handler() http.Handler
}

// NetRouter 純路由行為。Group 回呼只拿到 NetRouter，看不到 Run/Shutdown。
type NetRouter interface {
	Use(middleware func(http.Handler) http.Handler)

	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)
	Put(path string, h http.HandlerFunc)
	Delete(path string, h http.HandlerFunc)

	Group(path string, fn func(NetRouter))
}
