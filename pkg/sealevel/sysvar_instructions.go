package sealevel

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/base58"
)

const SysvarInstructionsAddrStr = "Sysvar1nstructions1111111111111111111111111"

var SysvarInstructionsAddr = solana.PublicKey(base58.MustDecodeFromString(SysvarInstructionsAddrStr))

var instructionSysvarAcctMetaIsSigner = byte(0b00000001)
var instructionSysvarAcctMetaIsWritable = byte(0b00000010)

func instructionsMarshaledSize(instructions []Instruction) uint64 {
	var marshaledSize uint64

	marshaledSize += 2                             // num_instructions
	marshaledSize += uint64(2 * len(instructions)) // instruction offsets

	for _, instr := range instructions {
		marshaledSize += 2                                                          // num_accounts
		marshaledSize += uint64(len(instr.Accounts) * (1 + solana.PublicKeyLength)) // flags + pubkey

		marshaledSize += uint64(solana.PublicKeyLength + // program_id
			2 + // instr_data_len
			len(instr.Data))
	}

	marshaledSize += 2 // current_instr_idx

	return marshaledSize
}

func marshalInstructions(instructions []Instruction) []byte {
	serializedLen := instructionsMarshaledSize(instructions)
	data := make([]byte, serializedLen)

	var offset uint64

	binary.LittleEndian.PutUint16(data[offset:], uint16(len(instructions)))
	offset += 2

	serializedInstrOffset := offset
	offset += 2 * uint64(len(instructions))

	for _, instr := range instructions {
		binary.LittleEndian.PutUint16(data[serializedInstrOffset:], uint16(offset))
		serializedInstrOffset += 2

		binary.LittleEndian.PutUint16(data[offset:], uint16(len(instr.Accounts)))
		offset += 2

		for _, acctMeta := range instr.Accounts {
			var acctMetaFlags byte
			if acctMeta.IsSigner {
				acctMetaFlags = acctMetaFlags | instructionSysvarAcctMetaIsSigner
			}
			if acctMeta.IsWritable {
				acctMetaFlags = acctMetaFlags | instructionSysvarAcctMetaIsWritable
			}
			data[offset] = acctMetaFlags
			offset += 1

			copy(data[offset:], acctMeta.Pubkey[:])
			offset += solana.PublicKeyLength
		}

		copy(data[offset:], instr.ProgramId[:])
		offset += solana.PublicKeyLength

		binary.LittleEndian.PutUint16(data[offset:], uint16(len(instr.Data)))
		offset += 2

		copy(data[offset:], instr.Data)
		offset += uint64(len(instr.Data))
	}

	binary.LittleEndian.PutUint16(data[offset:], 0)

	return data
}

// StoreCurrentIndex overwrites the trailing current instruction index.
func StoreCurrentIndex(data []byte, idx uint16) {
	if len(data) < 2 {
		return
	}
	binary.LittleEndian.PutUint16(data[len(data)-2:], idx)
}

// LoadCurrentIndex reads the index of the executing top-level instruction.
func LoadCurrentIndex(data []byte) (uint16, error) {
	if len(data) < 2 {
		return 0, InstrErrAccountDataTooSmall
	}
	return binary.LittleEndian.Uint16(data[len(data)-2:]), nil
}

func LoadNumInstructions(data []byte) (uint16, error) {
	if len(data) < 2 {
		return 0, InstrErrAccountDataTooSmall
	}
	return binary.LittleEndian.Uint16(data), nil
}

// LoadInstructionAt decodes the top-level instruction at idx.
func LoadInstructionAt(data []byte, idx uint16) (Instruction, error) {
	var instr Instruction

	numInstrs, err := LoadNumInstructions(data)
	if err != nil {
		return instr, err
	}
	if idx >= numInstrs {
		return instr, InstrErrInvalidArgument
	}

	offsetPos := 2 + 2*uint64(idx)
	if offsetPos+2 > uint64(len(data)) {
		return instr, InstrErrAccountDataTooSmall
	}
	offset := uint64(binary.LittleEndian.Uint16(data[offsetPos:]))

	if offset+2 > uint64(len(data)) {
		return instr, InstrErrInvalidAccountData
	}
	numAccts := uint64(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2

	if offset+numAccts*(1+solana.PublicKeyLength) > uint64(len(data)) {
		return instr, InstrErrInvalidAccountData
	}
	instr.Accounts = make([]AccountMeta, 0, numAccts)
	for i := uint64(0); i < numAccts; i++ {
		flags := data[offset]
		offset += 1
		var acctMeta AccountMeta
		copy(acctMeta.Pubkey[:], data[offset:offset+solana.PublicKeyLength])
		offset += solana.PublicKeyLength
		acctMeta.IsSigner = flags&instructionSysvarAcctMetaIsSigner != 0
		acctMeta.IsWritable = flags&instructionSysvarAcctMetaIsWritable != 0
		instr.Accounts = append(instr.Accounts, acctMeta)
	}

	if offset+solana.PublicKeyLength+2 > uint64(len(data)) {
		return instr, InstrErrInvalidAccountData
	}
	copy(instr.ProgramId[:], data[offset:offset+solana.PublicKeyLength])
	offset += solana.PublicKeyLength

	dataLen := uint64(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	if offset+dataLen > uint64(len(data)) {
		return instr, InstrErrInvalidAccountData
	}
	instr.Data = make([]byte, dataLen)
	copy(instr.Data, data[offset:offset+dataLen])

	return instr, nil
}
