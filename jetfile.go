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
package rocklab

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/rocklab/errs"
)

// maxJetBytes 解壓後的噴流輸入上限
const maxJetBytes = 16 << 20

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ReadJets 讀取噴流輸入；開頭是 zstd magic 時先解壓。前後空白會被去掉，內容不做檢查。
func ReadJets(r io.Reader) (string, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))

	var src io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return "", errs.Wrap(err, "open zstd jets")
		}
		defer zr.Close()
		src = zr
	}

	raw, err := io.ReadAll(io.LimitReader(src, maxJetBytes+1))
	if err != nil {
		return "", errs.NewWarn("read jets: " + err.Error())
	}
	if len(raw) > maxJetBytes {
		return "", errs.Warnf("jets input larger than %d bytes", maxJetBytes)
	}
	return strings.TrimSpace(string(raw)), nil
}

// LoadJets 從檔案讀取噴流輸入（純文字或 .zst）
func LoadJets(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errs.NewWarn("open jets file: " + err.Error())
	}
	defer f.Close()
	return ReadJets(f)
}
