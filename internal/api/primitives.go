// Package api holds the mail layouts of each command family and registers
// them with the catalog.
//
// Families: general (FP and PP), FP mobility management, PP mobility
// management, production test, image management, HAL, and the RTX EAP
// target notifications.
package api

import "github.com/danmuck/dectmail/internal/protocol/frame"

const (
	RtxEapTargetResetInd frame.Primitive = 0x0102

	ApiFpResetReq           frame.Primitive = 0x4000
	ApiFpResetInd           frame.Primitive = 0x4001
	ApiFpGetFwVersionReq    frame.Primitive = 0x4002
	ApiFpGetFwVersionCfm    frame.Primitive = 0x4003
	ApiFpMmGetIdReq         frame.Primitive = 0x4004
	ApiFpMmGetIdCfm         frame.Primitive = 0x4005
	ApiFpMmGetAccessCodeReq frame.Primitive = 0x400A
	ApiFpMmGetAccessCodeCfm frame.Primitive = 0x400B

	ApiFpMmSetRegistrationModeReq  frame.Primitive = 0x4105
	ApiFpMmSetRegistrationModeCfm  frame.Primitive = 0x4106
	ApiFpMmRegistrationCompleteInd frame.Primitive = 0x4107
	ApiFpMmHandsetPresentInd       frame.Primitive = 0x4108

	ApiProdTestReq frame.Primitive = 0x4FFE
	ApiProdTestCfm frame.Primitive = 0x4FFF

	ApiPpResetReq        frame.Primitive = 0x5000
	ApiPpResetInd        frame.Primitive = 0x5001
	ApiPpGetFwVersionReq frame.Primitive = 0x5002
	ApiPpGetFwVersionCfm frame.Primitive = 0x5003

	ApiPpMmLockReq                 frame.Primitive = 0x5100
	ApiPpMmLockedReq               frame.Primitive = 0x5101
	ApiPpMmLockedInd               frame.Primitive = 0x5102
	ApiPpMmUnlockedInd             frame.Primitive = 0x5103
	ApiPpMmRegistrationAutoReq     frame.Primitive = 0x5105
	ApiPpMmRegistrationSearchReq   frame.Primitive = 0x5107
	ApiPpMmRegistrationSearchInd   frame.Primitive = 0x5108
	ApiPpMmRegistrationSelectedReq frame.Primitive = 0x5109
	ApiPpMmRegistrationCompleteInd frame.Primitive = 0x510B
	ApiPpMmRegistrationFailedInd   frame.Primitive = 0x510C
	ApiPpMmFpNameInd               frame.Primitive = 0x5111

	ApiHalLedReq   frame.Primitive = 0x5904
	ApiHalLedCfm   frame.Primitive = 0x5905
	ApiHalReadReq  frame.Primitive = 0x5920
	ApiHalReadCfm  frame.Primitive = 0x5921
	ApiHalWriteReq frame.Primitive = 0x5922
	ApiHalWriteCfm frame.Primitive = 0x5923

	ApiImageInfoReq     frame.Primitive = 0x5A04
	ApiImageInfoCfm     frame.Primitive = 0x5A05
	ApiImageActivateReq frame.Primitive = 0x5A06
	ApiImageActivateCfm frame.Primitive = 0x5A07
)
