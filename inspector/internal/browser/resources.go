package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// applyResourceBlocking sets up request interception to block the given
// resource types. The returned router must be stopped when the page closes.
func applyResourceBlocking(page *rod.Page, types []string) *rod.HijackRouter {
	blockSet := make(map[string]bool, len(types))
	for _, t := range types {
		blockSet[strings.ToLower(t)] = true
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(ctx *rod.Hijack) {
		if shouldBlock(blockSet, string(ctx.Request.Type())) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

// shouldBlock maps a CDP resource type to the configured names. Fonts and
// stylesheets decide computed styles, so they are never blocked.
func shouldBlock(blockSet map[string]bool, resType string) bool {
	switch lower := strings.ToLower(resType); lower {
	case "font", "stylesheet", "document":
		return false
	case "image":
		return blockSet["image"] || blockSet["images"]
	case "media":
		return blockSet["media"]
	default:
		return blockSet[lower]
	}
}
