/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"
	"fmt"

	"github.com/CGYORK/meme-generator-project/internal/domain"
)

type NoticeKind int

const (
	NoticeError NoticeKind = iota
	NoticeNoImage
	NoticeEmptyCaptions
	NoticeDecodeFailed
	NoticeNotFound
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeNoImage:
		return "no-image"
	case NoticeEmptyCaptions:
		return "empty-captions"
	case NoticeDecodeFailed:
		return "decode-failed"
	case NoticeNotFound:
		return "not-found"
	default:
		return "error"
	}
}

// Notice is a blocking, user-facing message about a rejected operation.
type Notice struct {
	Kind    NoticeKind
	Message string
	Err     error
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// noticeFor maps an operation error to what the user is told.
func noticeFor(err error) Notice {
	var de *domain.ImageDecodeError
	switch {
	case errors.As(err, &de):
		return Notice{Kind: NoticeDecodeFailed, Message: "Failed to load image. Please check the file path: " + de.Source, Err: err}
	case errors.Is(err, domain.ErrImageDecodeFailed):
		return Notice{Kind: NoticeDecodeFailed, Message: "Failed to load image.", Err: err}
	case errors.Is(err, domain.ErrEmptyCaptionSet):
		return Notice{Kind: NoticeEmptyCaptions, Message: "Please upload an image and add at least one text box!", Err: err}
	case errors.Is(err, domain.ErrNoImageLoaded):
		return Notice{Kind: NoticeNoImage, Message: "Please upload an image first!", Err: err}
	case errors.Is(err, domain.ErrTextBoxNotFound):
		return Notice{Kind: NoticeNotFound, Message: "That text box no longer exists.", Err: err}
	}
	return Notice{Kind: NoticeError, Message: fmt.Sprintf("Something went wrong: %v", err), Err: err}
}
