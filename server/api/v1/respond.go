// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package v1

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/rocklab/errs"
	"github.com/zintix-labs/rocklab/server/httperr"
	"github.com/zintix-labs/rocklab/stats"
)

// respond 依 ?format= 輸出 json（預設）或 yaml。
//
// 先寫進 buffer 再回應，保證不會寫到一半才出錯。
func respond(w http.ResponseWriter, r *http.Request, v any) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	rep := stats.RenderByName(format)
	if rep == nil {
		httperr.Errs(w, errs.Warnf("unsupported format: %s", format))
		return
	}

	var b bytes.Buffer
	if err := rep.Write(&b, v); err != nil {
		httperr.Errs(w, errs.Wrap(err, "render response"))
		return
	}
	if format == "json" {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "application/yaml")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b.Bytes())
}

// fail 寫回錯誤並記錄 5xx / 逾時
func fail(w http.ResponseWriter, log *slog.Logger, msg string, err error) {
	httperr.Log(log, msg, err)
	httperr.Errs(w, err)
}
