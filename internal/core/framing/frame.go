package framing

import (
	"encoding/binary"
	"io"
	"math"
)

// PrefixSize 长度前缀字节数
const PrefixSize = 4

// EncodeLength 将 n 以大端序写入 dst 的前 4 字节
func EncodeLength(dst []byte, n uint32) {
	binary.BigEndian.PutUint32(dst, n)
}

// DecodeLength 读取 src 前 4 字节表示的负载长度
func DecodeLength(src []byte) uint32 {
	return binary.BigEndian.Uint32(src)
}

// AppendFrame 将 payload 编码为帧追加到 dst
func AppendFrame(dst, payload []byte) ([]byte, error) {
	if uint64(len(payload)) > math.MaxUint32 {
		return dst, ErrPayloadTooLarge
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}

// WriteFrame 将 payload 编码为帧写入 w
func WriteFrame(w io.Writer, payload []byte) error {
	frame, err := AppendFrame(make([]byte, 0, PrefixSize+len(payload)), payload)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}
