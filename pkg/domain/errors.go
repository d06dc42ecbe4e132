package domain

import "errors"

// ErrNoImageProduced はリモート呼び出し自体は成功したが、応答に画像が含まれなかったことを示します。
var ErrNoImageProduced = errors.New("no image produced")

// NoImageError は ErrNoImageProduced を表す具体的なエラーです。
// Message はそのまま UI に表示され、Reason にはサービスが返した理由 (安全フィルター等) が入ります。
type NoImageError struct {
	Message string
	Reason  string
}

func (e *NoImageError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = ErrNoImageProduced.Error()
	}
	if e.Reason != "" {
		return msg + " (" + e.Reason + ")"
	}
	return msg
}

// Is により errors.Is(err, ErrNoImageProduced) が成立します。
func (e *NoImageError) Is(target error) bool {
	return target == ErrNoImageProduced
}

// RemoteServiceError は通信・認証・クォータ等、リモート呼び出しそのものの失敗です。
// Error() は元のメッセージをそのまま返します。
type RemoteServiceError struct {
	Op  string
	Err error
}

func (e *RemoteServiceError) Error() string {
	if e.Err == nil {
		return "remote service error"
	}
	return e.Err.Error()
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}

// ValidationError は呼び出し側の入力チェックで検出された不備です。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
