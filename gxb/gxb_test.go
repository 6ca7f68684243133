package gxb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gunderscript/vm"
)

func sampleProgram() vm.Program {
	return vm.Program{
		Code: []byte{0x01, 0x02, 0x03, 0x04},
		Functions: []vm.Function{
			{Name: "main", Entry: 0, ArgCount: 0, TotalSlots: 2, Exported: true},
			{Name: "helper", Entry: 4, ArgCount: 1, TotalSlots: 1, Exported: false},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	data, err := Write(sampleProgram())
	require.NoError(t, err)

	prog, err := Read(data)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, prog.Code)
	require.Len(t, prog.Functions, 1)
	require.Equal(t, "main", prog.Functions[0].Name)
	require.True(t, prog.Functions[0].Exported)
}

func TestWriteRejectsProgramWithNoExportedFunctions(t *testing.T) {
	prog := vm.Program{
		Code:      []byte{0xff},
		Functions: []vm.Function{{Name: "internal", Exported: false}},
	}
	_, err := Write(prog)
	require.Error(t, err)
}

func TestReadRejectsBadMagic(t *testing.T) {
	data, err := Write(sampleProgram())
	require.NoError(t, err)
	data[0] = 'X'

	_, err = Read(data)
	require.Error(t, err)
}

func TestReadRejectsBuildDateMismatch(t *testing.T) {
	data, err := Write(sampleProgram())
	require.NoError(t, err)

	saved := BuildDate
	BuildDate = "1999-01-01"
	defer func() { BuildDate = saved }()

	_, err = Read(data)
	require.Error(t, err)
}

func TestReadRejectsTruncatedFile(t *testing.T) {
	data, err := Write(sampleProgram())
	require.NoError(t, err)

	_, err = Read(data[:len(data)-2])
	require.Error(t, err)
}

func TestReadAggregatesMultipleErrors(t *testing.T) {
	data, err := Write(sampleProgram())
	require.NoError(t, err)
	data[0] = 'X' // bad magic

	saved := BuildDate
	BuildDate = "1999-01-01" // also force a build-date mismatch
	defer func() { BuildDate = saved }()

	_, err = Read(data)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad magic")
	require.Contains(t, err.Error(), "build date mismatch")
}
