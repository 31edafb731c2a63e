package youdao

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
)

const (
	clientID  = "fanyideskweb"
	productID = "webfanyi"

	decodeKeySecret = "ydsecret://query/key/B*RGygVywfNBwpmBaZg*WT7SIOUP2T0C9WHMZN39j^DAdaZhAnxvGcCY6VYFwnHl"
	decodeIVSecret  = "ydsecret://query/iv/C@lZe2YzHtZ2CYgaXKSVfsb7Y4QWHjITPPZ0nQp87fBeJ!Iv6v^6fvi2WN@bYpJ4"
)

var errBadPadding = errors.New("invalid pkcs7 padding")

// sign 计算请求签名
func sign(mysticTime, key string) string {
	sum := md5.Sum([]byte("client=" + clientID + "&mysticTime=" + mysticTime + "&product=" + productID + "&key=" + key))
	return hex.EncodeToString(sum[:])
}

// baseBody 所有签名请求共有的字段
func baseBody(key string, nowMillis int64) map[string]string {
	t := strconv.FormatInt(nowMillis, 10)
	return map[string]string{
		"sign":       sign(t, key),
		"client":     clientID,
		"product":    productID,
		"appVersion": "1.0.0",
		"vendor":     "web",
		"pointParam": "client,mysticTime,product",
		"mysticTime": t,
		"keyfrom":    "fanyi.web",
	}
}

// decrypt 解密 webtranslate 响应
//
// 响应是 URL 安全字符集的 Base64，密钥与 IV 分别为两个固定串的 MD5。
func decrypt(src string) ([]byte, error) {
	s := strings.TrimSpace(src)
	s = strings.NewReplacer("_", "/", "-", "+").Replace(s)
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, errors.New("ciphertext is not a multiple of the block size")
	}

	key := md5.Sum([]byte(decodeKeySecret))
	iv := md5.Sum([]byte(decodeIVSecret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}

	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(plain, data)
	return unpad(plain)
}

func unpad(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, errBadPadding
	}
	if !bytes.Equal(data[len(data)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return nil, errBadPadding
	}
	return data[:len(data)-n], nil
}
