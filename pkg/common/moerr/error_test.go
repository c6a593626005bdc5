// Copyright 2022 VectorSQL
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package moerr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	err := NewOOM(context.TODO())
	require.Equal(t, ErrOOM, err.ErrorCode())
	require.True(t, IsMoErrCode(err, ErrOOM))
	require.False(t, IsMoErrCode(err, ErrInternal))
	require.Equal(t, "out of memory", err.Error())
}

func TestFormattedMessages(t *testing.T) {
	err := NewInternalErrorNoCtxf("bad offset %d", 42)
	require.Equal(t, "internal error: bad offset 42", err.Error())
	require.True(t, IsMoErrCode(err, ErrInternal))

	inv := NewInvalidStateNoCtx("sealed container")
	require.Equal(t, "invalid state sealed container", inv.Error())
}

func TestErrorsIs(t *testing.T) {
	err := NewInvalidInput(context.TODO(), "key %s", "x")
	require.True(t, errors.Is(err, NewInvalidInputNoCtx("other")))
	require.False(t, errors.Is(err, NewOOMNoCtx()))
}

func TestNilIsOk(t *testing.T) {
	require.True(t, IsMoErrCode(nil, Ok))
	require.False(t, IsMoErrCode(nil, ErrInternal))
	require.False(t, IsMoErrCode(errors.New("plain"), ErrInternal))
}
