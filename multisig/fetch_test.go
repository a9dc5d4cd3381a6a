// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package multisig_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"

	"github.com/luxfi/interchain/checkpoint"
	"github.com/luxfi/interchain/multisig"
	"github.com/luxfi/interchain/multisig/multisigmock"
	"github.com/luxfi/interchain/quorum"
)

const testDomain uint32 = 1000

var errTest = errors.New("non-nil error")

func newSigners(t *testing.T, n int) ([]*quorum.ECDSASigner, []common.Address) {
	signers := make([]*quorum.ECDSASigner, n)
	addrs := make([]common.Address, n)
	for i := range signers {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		signers[i] = quorum.NewECDSASigner(key)
		addrs[i] = signers[i].Address()
	}
	return signers, addrs
}

func signCheckpoint(t *testing.T, s *quorum.ECDSASigner, root common.Hash, index uint32) multisig.SignedCheckpoint {
	c := checkpoint.Checkpoint{
		Domain: testDomain,
		Root:   root,
		Index:  index,
	}
	sig, err := s.Sign(c.Digest())
	require.NoError(t, err)
	return multisig.SignedCheckpoint{
		Checkpoint: c,
		Signature:  sig,
	}
}

func TestFetchCheckpointInRange(t *testing.T) {
	signers, addrs := newSigners(t, 3)
	registry, err := quorum.NewRegistry(testDomain, addrs, 2)
	require.NoError(t, err)

	rootA := common.HexToHash("0xaa")
	rootB := common.HexToHash("0xbb")

	tests := []struct {
		name          string
		minIndex      uint32
		maxIndex      uint32
		syncerF       func(*gomock.Controller) multisig.CheckpointSyncer
		expectedIndex uint32
		expectedRoot  common.Hash
		expectedNil   bool
		expectedErr   error
	}{
		{
			name:     "quorum at highest common index",
			minIndex: 0,
			maxIndex: 10,
			syncerF: func(ctrl *gomock.Controller) multisig.CheckpointSyncer {
				s := multisigmock.NewCheckpointSyncer(ctrl)
				s.EXPECT().LatestIndex(gomock.Any(), addrs[0]).Return(uint32(5), true, nil)
				s.EXPECT().LatestIndex(gomock.Any(), addrs[1]).Return(uint32(4), true, nil)
				s.EXPECT().LatestIndex(gomock.Any(), addrs[2]).Return(uint32(0), false, nil)
				s.EXPECT().Checkpoint(gomock.Any(), addrs[0], uint32(4)).Return(signCheckpoint(t, signers[0], rootA, 4), true, nil)
				s.EXPECT().Checkpoint(gomock.Any(), addrs[1], uint32(4)).Return(signCheckpoint(t, signers[1], rootA, 4), true, nil)
				s.EXPECT().Checkpoint(gomock.Any(), addrs[2], uint32(4)).Return(multisig.SignedCheckpoint{}, false, nil)
				return s
			},
			expectedIndex: 4,
			expectedRoot:  rootA,
		},
		{
			name:     "conflicting roots fall back to earlier index",
			minIndex: 2,
			maxIndex: 10,
			syncerF: func(ctrl *gomock.Controller) multisig.CheckpointSyncer {
				s := multisigmock.NewCheckpointSyncer(ctrl)
				for _, addr := range addrs {
					s.EXPECT().LatestIndex(gomock.Any(), addr).Return(uint32(4), true, nil)
				}
				s.EXPECT().Checkpoint(gomock.Any(), addrs[0], uint32(4)).Return(signCheckpoint(t, signers[0], rootA, 4), true, nil)
				s.EXPECT().Checkpoint(gomock.Any(), addrs[1], uint32(4)).Return(signCheckpoint(t, signers[1], rootB, 4), true, nil)
				s.EXPECT().Checkpoint(gomock.Any(), addrs[2], uint32(4)).Return(multisig.SignedCheckpoint{}, false, nil)
				s.EXPECT().Checkpoint(gomock.Any(), addrs[0], uint32(3)).Return(signCheckpoint(t, signers[0], rootB, 3), true, nil)
				s.EXPECT().Checkpoint(gomock.Any(), addrs[1], uint32(3)).Return(multisig.SignedCheckpoint{}, false, nil)
				s.EXPECT().Checkpoint(gomock.Any(), addrs[2], uint32(3)).Return(signCheckpoint(t, signers[2], rootB, 3), true, nil)
				return s
			},
			expectedIndex: 3,
			expectedRoot:  rootB,
		},
		{
			name:     "signature from wrong validator ignored",
			minIndex: 4,
			maxIndex: 4,
			syncerF: func(ctrl *gomock.Controller) multisig.CheckpointSyncer {
				s := multisigmock.NewCheckpointSyncer(ctrl)
				for _, addr := range addrs {
					s.EXPECT().LatestIndex(gomock.Any(), addr).Return(uint32(4), true, nil)
				}
				s.EXPECT().Checkpoint(gomock.Any(), addrs[0], uint32(4)).Return(signCheckpoint(t, signers[0], rootA, 4), true, nil)
				s.EXPECT().Checkpoint(gomock.Any(), addrs[1], uint32(4)).Return(signCheckpoint(t, signers[0], rootA, 4), true, nil)
				s.EXPECT().Checkpoint(gomock.Any(), addrs[2], uint32(4)).Return(signCheckpoint(t, signers[2], rootA, 5), true, nil)
				return s
			},
			expectedNil: true,
		},
		{
			name:     "too few validators published",
			minIndex: 0,
			maxIndex: 10,
			syncerF: func(ctrl *gomock.Controller) multisig.CheckpointSyncer {
				s := multisigmock.NewCheckpointSyncer(ctrl)
				s.EXPECT().LatestIndex(gomock.Any(), addrs[0]).Return(uint32(5), true, nil)
				s.EXPECT().LatestIndex(gomock.Any(), addrs[1]).Return(uint32(0), false, nil)
				s.EXPECT().LatestIndex(gomock.Any(), addrs[2]).Return(uint32(0), false, nil)
				return s
			},
			expectedNil: true,
		},
		{
			name:     "quorum index below range",
			minIndex: 6,
			maxIndex: 10,
			syncerF: func(ctrl *gomock.Controller) multisig.CheckpointSyncer {
				s := multisigmock.NewCheckpointSyncer(ctrl)
				for _, addr := range addrs {
					s.EXPECT().LatestIndex(gomock.Any(), addr).Return(uint32(5), true, nil)
				}
				return s
			},
			expectedNil: true,
		},
		{
			name:     "syncer error",
			minIndex: 0,
			maxIndex: 10,
			syncerF: func(ctrl *gomock.Controller) multisig.CheckpointSyncer {
				s := multisigmock.NewCheckpointSyncer(ctrl)
				s.EXPECT().LatestIndex(gomock.Any(), gomock.Any()).Return(uint32(0), false, errTest).AnyTimes()
				return s
			},
			expectedErr: errTest,
		},
		{
			name:     "empty range",
			minIndex: 5,
			maxIndex: 4,
			syncerF: func(ctrl *gomock.Controller) multisig.CheckpointSyncer {
				return multisigmock.NewCheckpointSyncer(ctrl)
			},
			expectedNil: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)
			ctrl := gomock.NewController(t)

			signed, err := multisig.FetchCheckpointInRange(
				context.Background(),
				test.syncerF(ctrl),
				registry,
				quorum.ECDSAVerifier{},
				test.minIndex,
				test.maxIndex,
			)
			require.ErrorIs(err, test.expectedErr)
			if test.expectedErr != nil || test.expectedNil {
				require.Nil(signed)
				return
			}

			require.NotNil(signed)
			require.Equal(test.expectedIndex, signed.Checkpoint.Index)
			require.Equal(test.expectedRoot, signed.Checkpoint.Root)
			require.Equal(testDomain, signed.Checkpoint.Domain)

			ok, err := quorum.Verify(quorum.ECDSAVerifier{}, &signed.Checkpoint, signed.Signatures, registry)
			require.NoError(err)
			require.True(ok)
		})
	}
}
