// internal/cache/keys.go
package cache

import (
	"fmt"
	"strconv"
	"strings"
)

// キー文法はレガシーのフロントエンドと互換である必要があるため、
// 生成・解釈はこのファイルに集約する。他の場所で文字列連結しないこと。
//
//	Course{courseId}Unidad{unitId} -> "0"〜"100"
//	Course{courseId}Quiz{unitId}   -> "true"
//	Course{courseId}isFinished     -> "true"
//	Course{courseId}finishedDate   -> "YYYY-MM-DD"

// Namespace はこのサブシステムが所有するキーの接頭辞です
const Namespace = "Course"

// InitialOpenIndexKey は同じ接頭辞下にあるがUI側が所有する予約キーで、
// 同期時のパージ対象から除外する
const InitialOpenIndexKey = "CourseinitialOpenIndex"

type KeyKind int

const (
	KindUnit KeyKind = iota + 1
	KindQuiz
	KindFinished
	KindFinishDate
)

// Key は構造化したキャッシュキーです
type Key struct {
	CourseID int
	Kind     KeyKind
	UnitID   int // KindUnit / KindQuiz のみ有効
}

// Encode は互換文法のキー文字列を生成します
func (k Key) Encode() string {
	switch k.Kind {
	case KindUnit:
		return fmt.Sprintf("%s%dUnidad%d", Namespace, k.CourseID, k.UnitID)
	case KindQuiz:
		return fmt.Sprintf("%s%dQuiz%d", Namespace, k.CourseID, k.UnitID)
	case KindFinished:
		return fmt.Sprintf("%s%disFinished", Namespace, k.CourseID)
	case KindFinishDate:
		return fmt.Sprintf("%s%dfinishedDate", Namespace, k.CourseID)
	default:
		return ""
	}
}

// ParseKey はキー文字列を構造化キーに解釈します。
// 文法に合致しない場合は ok=false を返す（予約キーも合致しない扱い）。
func ParseKey(s string) (Key, bool) {
	if !strings.HasPrefix(s, Namespace) || s == InitialOpenIndexKey {
		return Key{}, false
	}
	rest := s[len(Namespace):]

	// 先頭のコースID（10進数）を読み取る
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i == 0 {
		return Key{}, false
	}
	courseID, err := strconv.Atoi(rest[:i])
	if err != nil {
		return Key{}, false
	}
	rest = rest[i:]

	switch {
	case strings.HasPrefix(rest, "Unidad"):
		unitID, err := strconv.Atoi(rest[len("Unidad"):])
		if err != nil {
			return Key{}, false
		}
		return Key{CourseID: courseID, Kind: KindUnit, UnitID: unitID}, true
	case strings.HasPrefix(rest, "Quiz"):
		unitID, err := strconv.Atoi(rest[len("Quiz"):])
		if err != nil {
			return Key{}, false
		}
		return Key{CourseID: courseID, Kind: KindQuiz, UnitID: unitID}, true
	case rest == "isFinished":
		return Key{CourseID: courseID, Kind: KindFinished}, true
	case rest == "finishedDate":
		return Key{CourseID: courseID, Kind: KindFinishDate}, true
	default:
		return Key{}, false
	}
}

// UnitKey / QuizKey / FinishedKey / FinishDateKey は生成用のショートハンドです

func UnitKey(courseID, unitID int) Key {
	return Key{CourseID: courseID, Kind: KindUnit, UnitID: unitID}
}

func QuizKey(courseID, unitID int) Key {
	return Key{CourseID: courseID, Kind: KindQuiz, UnitID: unitID}
}

func FinishedKey(courseID int) Key {
	return Key{CourseID: courseID, Kind: KindFinished}
}

func FinishDateKey(courseID int) Key {
	return Key{CourseID: courseID, Kind: KindFinishDate}
}
