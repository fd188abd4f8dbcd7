package sectoken

import (
	"bytes"

	"github.com/gagliardetto/solana-go"
	"github.com/gammazero/deque"
	"go.firedancer.io/sectoken/pkg/sealevel"
	"k8s.io/klog/v2"
)

// verifyByIntrospection reads the instructions sysvar and matches every
// configured program to an earlier instruction of the transaction that
// invoked it with targetData. The same program may be configured more
// than once; each occurrence must be matched by a distinct instruction.
// The most recent instructions are matched first.
func verifyByIntrospection(sysvarData []byte, programs []solana.PublicKey, targetData []byte, required []solana.PublicKey) error {
	current, err := sealevel.LoadCurrentIndex(sysvarData)
	if err != nil {
		return err
	}

	pending := make(map[solana.PublicKey]*deque.Deque[int], len(programs))
	for slot, program := range programs {
		queue, ok := pending[program]
		if !ok {
			queue = deque.New[int]()
			pending[program] = queue
		}
		queue.PushBack(slot)
	}

	lists := make([][]solana.PublicKey, len(programs))
	remaining := len(programs)

	for idx := int(current) - 1; idx >= 0 && remaining > 0; idx-- {
		ix, err := sealevel.LoadInstructionAt(sysvarData, uint16(idx))
		if err != nil {
			return err
		}
		queue, ok := pending[ix.ProgramId]
		if !ok || queue.Len() == 0 {
			continue
		}
		if !bytes.Equal(ix.Data, targetData) {
			continue
		}
		lists[queue.PopFront()] = ix.AccountKeys()
		remaining--
	}

	if remaining > 0 {
		for program, queue := range pending {
			if queue.Len() > 0 {
				klog.V(2).Infof("no prior instruction from verification program %s", program)
			}
		}
		return VerificationProgramNotFound.Err()
	}

	return ValidateAccountVerification(lists, required)
}
