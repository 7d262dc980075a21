// Copyright (c) 2013-2022 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"

	"github.com/btcsuite/btcscript/wire"
)

// Transactions from the main and test networks along with the BIP 143
// example transactions.
const (
	// testnet block 23428, pay-to-script-hash 4-of-6 multisig.
	testnet23428TxHex = "0100000002c0cd5346700d18a937575424eb84888bdc277bdbfade39b3bb9a4c" +
		"e31fd4455101000000fdf60100483045022100f681bb660ef85bb191e337450f" +
		"2ba3493c37b90a8622864d932cec5b40a74428022007cab269d846b7e63899b8" +
		"e7082bdea94375d4b1c197b7c50365823c9ffd935e01483045022100b4d3be95" +
		"b088c8ef176b25c9cee0b16ac7f91c10ccf645ab7421ad3de1d8aba802205c6b" +
		"3bd9df0b19271abefc47997ce7bd113a6f069674003c821c01440d49a48b0148" +
		"304502207fad219634211fb614cef1654bdb956a9ed751a352e47c2b64d4ac84" +
		"59e05ec2022100bd4ae53e76f266938f2ec09d1b2d515eaf5e21b990e5c7df07" +
		"79ca61f24a10de014830450221009f2dd7fa5eafdf9f660e764750aabffd8662" +
		"8bb19501d49007551151f6409266022019fad776d46c6896a849bf7fcacefa73" +
		"da6d5db22680c7bacdd055d8d8547858014ccf542102d7dafdc7f5d63bc1e521" +
		"0a93a93c57e96acfb123df06ca02318be689791fa634210204affb8e9fd6228d" +
		"370aed6b8fff2fc33bbe9603e2933ae3b92b11a67d7e7d3d210269fa9a07b38c" +
		"01440ecabc74481fdd2ede1591e293a1108ba1ac511d85e40ca62102f24bda0f" +
		"aab218a98c5975cb7eb035b37020ec3758e454d95f382e1f274da21121027957" +
		"16e51a5539961872b559f2e938a29862565c1d0c70ed6a748adb8541c82b2103" +
		"828209539e87cc72694e0d397a00ae1c1b3aa3aa7931df3bb72c71172758ed77" +
		"56aeffffffffca1ea035fedd045da687f8219f6d76982b47fd3edab01212d3de" +
		"f0dc917d321801000000fdf40100473044022050cf9d0bf024af1780af7ce91a" +
		"8cac62fd54a3df96cc1eb27889a58aaf82f09e02205f85c010faa5978963f569" +
		"cfa6bd7202363841ad82bab0a6044c1092140ba49001483045022100f3f5076e" +
		"1f233acf3fd2bb1188da82f3259224ee29a50af287b707c71503543f02202e82" +
		"db849e59f8eb836ec6c55dab6a3d61b6511e9d25e550901d5534276432320148" +
		"304502210094ff0cd6c74dd756a07334c2b76373dd4fb8f5ef7c1da7e09a168d" +
		"54cf79a7770220114337de0ac0edd7871c079b796ad422d2d5e50d350d3b9f73" +
		"71b0f1bd66fe7a01473044022022bc92872b6c680da40aa6388e28ef396c7ffa" +
		"410317ae574c1f31836c85b28602203b43a7d2cdcc2ba1afaf53c1a0c0b47493" +
		"3581b0e359aed788ad7ad819260dfb014ccf542102d7dafdc7f5d63bc1e5210a" +
		"93a93c57e96acfb123df06ca02318be689791fa634210204affb8e9fd6228d37" +
		"0aed6b8fff2fc33bbe9603e2933ae3b92b11a67d7e7d3d210269fa9a07b38c01" +
		"440ecabc74481fdd2ede1591e293a1108ba1ac511d85e40ca62102f24bda0faa" +
		"b218a98c5975cb7eb035b37020ec3758e454d95f382e1f274da2112102795716" +
		"e51a5539961872b559f2e938a29862565c1d0c70ed6a748adb8541c82b210382" +
		"8209539e87cc72694e0d397a00ae1c1b3aa3aa7931df3bb72c71172758ed7756" +
		"aeffffffff02605af405000000001976a914bb6754a948265de730c60fbd745a" +
		"eb5868ea921e88ac00e1f5050000000017a9144aba54e2541475f91659ccdbb1" +
		"3ce0b490778c7f8700000000"

	// mainnet block 290329, signature removal from the redeem script.
	block290329TxHex = "0100000002f9cbafc519425637ba4227f8d0a0b7160b4e65168193d5af397478" +
		"91de98b5b5000000006b4830450221008dd619c563e527c47d9bd53534a770b1" +
		"02e40faa87f61433580e04e271ef2f960220029886434e18122b53d5decd25f1" +
		"f4acb2480659fea20aabd856987ba3c3907e0121022b78b756e2258af13779c1" +
		"a1f37ea6800259716ca4b7f0b87610e0bf3ab52a01ffffffff42e79882548008" +
		"76b69f24676b3e0205b77be476512ca4d970707dd5c60598ab00000000fd2601" +
		"00483045022015bd0139bcccf990a6af6ec5c1c52ed8222e03a0d51c334df139" +
		"968525d2fcd20221009f9efe325476eb64c3958e4713e9eefe49bf1d820ed58d" +
		"2112721b134e2a1a53034930460221008431bdfa72bc67f9d41fe72e94c88fb8" +
		"f359ffa30b33c72c121c5a877d922e1002210089ef5fc22dd8bfc6bf9ffdb01a" +
		"9862d27687d424d1fefbab9e9c7176844a187a014c9052483045022015bd0139" +
		"bcccf990a6af6ec5c1c52ed8222e03a0d51c334df139968525d2fcd20221009f" +
		"9efe325476eb64c3958e4713e9eefe49bf1d820ed58d2112721b134e2a1a5303" +
		"210378d430274f8c5ec1321338151e9f27f4c676a008bdf8638d07c0b6be9ab3" +
		"5c71210378d430274f8c5ec1321338151e9f27f4c676a008bdf8638d07c0b6be" +
		"9ab35c7153aeffffffff01a08601000000000017a914d8dacdadb7462ae15cd9" +
		"06f1878706d0da8660e68700000000"

	// mainnet block 438513.
	block438513TxHex = "0100000001a06bf74cc36eac395188b06850c5a01d00b355065c589d14036e89" +
		"e075d7518e000000009d483045022100ba555ac17a084e2a1b621c2171fa563b" +
		"c4fb75cd5c0968153f44ba7203cb876f022036626f4579de16e3ad160df01f64" +
		"9ffb8dbf47b504ee56dc3ad7260af24ca0db0101004c50632102768e47607c52" +
		"e581595711e27faffa7cb646b4f481fe269bd49691b2fbc12106ad6704355e26" +
		"58b1756821028a5af8284a12848d69a25a0ac5cea20be905848eb645fd03d3b0" +
		"65df88a9117cacfeffffff0158920100000000001976a9149d86f66406d316d4" +
		"4d58cbf90d71179dd8162dd388ac355e2658"

	// mainnet block 481824, pay-to-script-hash nested p2wpkh.
	block481824TxHex = "0200000000010140d43a99926d43eb0e619bf0b3d83b4a31f60c176beecfb9d3" +
		"5bf45e54d0f7420100000017160014a4b4ca48de0b3fffc15404a1acdc8dbaae" +
		"226955ffffffff0100e1f5050000000017a9144a1154d50b03292b3024370901" +
		"711946cb7cccc387024830450221008604ef8f6d8afa892dee0f31259b6ce02d" +
		"d70c545cfcfed8148179971876c54a022076d771d6e91bed212783c9b06e0de6" +
		"00fab2d518fad6f15a2b191d7fbd262a3e0121039d25ab79f41f75ceaf882411" +
		"fd41fa670a4c672c23ffaf0e361a969cde0692e800000000"

	// testnet block 892321, p2wsh spend without a witness.
	testnet892321TxHex = "0200000001f508cd3a9902906e2101a0632e937284bf6cfe8d263052f40152ce" +
		"d6f5e8a5fc0000000000ffffffff0105e4020000000000160014b6aa463696df" +
		"9140b1191fa2cc1891cf9b5da6d900000000"

	bip143P2WPKHTxHex = "01000000000102fff7f7881a8099afa6940d42d1e7f6362bec38171ea3edf433" +
		"541db4e4ad969f00000000494830450221008b9d1dc26ba6a9cb62127b02742f" +
		"a9d754cd3bebf337f7a55d114c8e5cdd30be022040529b194ba3f9281a99f2b1" +
		"c0a19c0489bc22ede944ccf4ecbab4cc618ef3ed01eeffffffef51e1b804cc89" +
		"d182d279655c3aa89e815b1b309fe287d9b2b55d57b90ec68a0100000000ffff" +
		"ffff02202cb206000000001976a9148280b37df378db99f66f85c95a783a76ac" +
		"7a6d5988ac9093510d000000001976a9143bde42dbee7e4dbe6a21b2d50ce2f0" +
		"167faa815988ac000247304402203609e17b84f6a7d30c80bfa610b5b4542f32" +
		"a8a0d5447a12fb1366d7f01cc44a0220573a954c4518331561406f90300e8f33" +
		"58f51928d43c212a8caed02de67eebee0121025476c2e83188368da1ff3e292e" +
		"7acafcdb3566bb0ad253f62fc70f07aeee635711000000"

	bip143P2SHP2WPKHTxHex = "01000000000101db6b1b20aa0fd7b23880be2ecbd4a98130974cf4748fb66092" +
		"ac4d3ceb1a5477010000001716001479091972186c449eb1ded22b78e40d009b" +
		"df0089feffffff02b8b4eb0b000000001976a914a457b684d7f0d539a46a45bb" +
		"c043f35b59d0d96388ac0008af2f000000001976a914fd270b1ee6abcaea97fe" +
		"a7ad0402e8bd8ad6d77c88ac02473044022047ac8e878352d3ebbde1c94ce3a1" +
		"0d057c24175747116f8288e5d794d12d482f0220217f36a485cae903c713331d" +
		"877c1f64677e3622ad4010726870540656fe9dcb012103ad1d8e89212f0b92c7" +
		"4d23bb710c00662ad1470198ac48c43f7d6f93a2a2687392040000"

	bip143P2WSH1TxHex = "01000000000102fe3dc9208094f3ffd12645477b3dc56f60ec4fa8e6f5d67c56" +
		"5d1c6b9216b36e000000004847304402200af4e47c9b9629dbecc21f73af989b" +
		"daa911f7e6f6c2e9394588a3aa68f81e9902204f3fcf6ade7e5abb1295b6774c" +
		"8e0abd94ae62217367096bc02ee5e435b67da201ffffffff0815cf020f013ed6" +
		"cf91d29f4202e8a58726b1ac6c79da47c23d1bee0a6925f80000000000ffffff" +
		"ff0100f2052a010000001976a914a30741f8145e5acadf23f751864167f32e09" +
		"63f788ac000347304402200de66acf4527789bfda55fc5459e214fa6083f936b" +
		"430a762c629656216805ac0220396f550692cd347171cbc1ef1f51e15282e837" +
		"bb2b30860dc77c8f78bc8501e503473044022027dc95ad6b740fe5129e7e62a7" +
		"5dd00f291a2aeb1200b84b09d9e3789406b6c002201a9ecd315dd6a0e632ab20" +
		"bbb98948bc0c6fb204f2c286963bb48517a7058e27034721026dccc749adc2a9" +
		"d0d89497ac511f760f45c47dc5ed9cf352a58ac706453880aeadab210255a962" +
		"6aebf5e29c0e6538428ba0d1dcf6ca98ffdf086aa8ced5e0d0215ea465ac0000" +
		"0000"

	bip143P2WSH2TxHex = "01000000000102e9b542c5176808107ff1df906f46bb1f2583b16112b95ee538" +
		"0665ba7fcfc0010000000000ffffffff80e68831516392fcd100d186b3c2c7b9" +
		"5c80b53c77e77c35ba03a66b429a2a1b0000000000ffffffff02809698000000" +
		"00001976a914de4b231626ef508c9a74a8517e6783c0546d6b2888ac80969800" +
		"000000001976a9146648a8cd4531e1ec47f35916de8e259237294d1e88ac0248" +
		"3045022100f6a10b8604e6dc910194b79ccfc93e1bc0ec7c03453caaa8987f7d" +
		"6c3413566002206216229ede9b4d6ec2d325be245c5b508ff0339bf1794078e2" +
		"0bfe0babc7ffe683270063ab68210392972e2eb617b2388771abe27235fd5ac4" +
		"4af8e61693261550447a4c3e39da98ac024730440220032521802a76ad7bf74d" +
		"0e2c218b72cf0cbc867066e2e53db905ba37f130397e02207709e2188ed7f08f" +
		"4c952d9d13986da504502b8c3be59617e043552f506c46ff83275163ab682103" +
		"92972e2eb617b2388771abe27235fd5ac44af8e61693261550447a4c3e39da98" +
		"ac00000000"

	// Inputs of the second p2wsh example swapped, signed with
	// SIGHASH_SINGLE|SIGHASH_ANYONECANPAY.
	bip143P2WSH3TxHex = "0100000000010280e68831516392fcd100d186b3c2c7b95c80b53c77e77c35ba" +
		"03a66b429a2a1b0000000000ffffffffe9b542c5176808107ff1df906f46bb1f" +
		"2583b16112b95ee5380665ba7fcfc0010000000000ffffffff02809698000000" +
		"00001976a9146648a8cd4531e1ec47f35916de8e259237294d1e88ac80969800" +
		"000000001976a914de4b231626ef508c9a74a8517e6783c0546d6b2888ac0247" +
		"30440220032521802a76ad7bf74d0e2c218b72cf0cbc867066e2e53db905ba37" +
		"f130397e02207709e2188ed7f08f4c952d9d13986da504502b8c3be59617e043" +
		"552f506c46ff83275163ab68210392972e2eb617b2388771abe27235fd5ac44a" +
		"f8e61693261550447a4c3e39da98ac02483045022100f6a10b8604e6dc910194" +
		"b79ccfc93e1bc0ec7c03453caaa8987f7d6c3413566002206216229ede9b4d6e" +
		"c2d325be245c5b508ff0339bf1794078e20bfe0babc7ffe683270063ab682103" +
		"92972e2eb617b2388771abe27235fd5ac44af8e61693261550447a4c3e39da98" +
		"ac00000000"

	bip143P2SHP2WSHTxHex = "0100000000010136641869ca081e70f394c6948e8af409e18b619df2ed74aa10" +
		"6c1ca29787b96e0100000023220020a16b5755f7f6f96dbd65f5f0d6ab9418b8" +
		"9af4b1f14a1bb8a09062c35f0dcb54ffffffff0200e9a435000000001976a914" +
		"389ffce9cd9ae88dcc0631e88a821ffdbe9bfe2688acc0832f05000000001976" +
		"a9147480a33f950689af511e6e84c138dbbd3c3ee41588ac080047304402206a" +
		"c44d672dac41f9b00e28f4df20c52eeb087207e8d758d76d92c6fab3b73e2b02" +
		"20367750dbbe19290069cba53d096f44530e4f98acaa594810388cf7409a1870" +
		"ce01473044022068c7946a43232757cbdf9176f009a928e1cd9a1a8c212f15c1" +
		"e11ac9f2925d9002205b75f937ff2f9f3c1246e547e54f62e027f64eefa26955" +
		"78cc6432cdabce271502473044022059ebf56d98010a932cf8ecfec54c48e613" +
		"9ed6adb0728c09cbe1e4fa0915302e022007cd986c8fa870ff5d2b3a89139c9f" +
		"e7e499259875357e20fcbb15571c76795403483045022100fbefd94bd0a488d5" +
		"0b79102b5dad4ab6ced30c4069f1eaa69a4b5a763414067e02203156c6a5c9cf" +
		"88f91265f5a942e96213afae16d83321c8b31bb342142a14d163814830450221" +
		"00a5263ea0553ba89221984bd7f0b13613db16e7a70c549a86de0cc0444141a4" +
		"07022005c360ef0ae5a5d4f9f2f87a56c1546cc8268cab08c73501d6b3be2e1e" +
		"1a8a08824730440220525406a1482936d5a21888260dc165497a90a15669636d" +
		"8edca6b9fe490d309c022032af0c646a34a44d1f4576bf6a4a74b67940f8faa8" +
		"4c7df9abe12a01a11e2b4783cf56210307b8ae49ac90a048e9b53357a2354b33" +
		"34e9c8bee813ecb98e99a7e07e8c3ba32103b28f0c28bfab54554ae8c658ac5c" +
		"3e0ce6e79ad336331f78c428dd43eea8449b21034b8113d703413d57761b8b97" +
		"81957b8c0ac1dfe69f492580ca4195f50376ba4a21033400f6afecb833092a9a" +
		"21cfdf1ed1376e58c5d1f47de74683123987e967a8f42103a6d48b1131e94ba0" +
		"4d9737d61acdaa1322008af9602b3b14862c07a1789aac162102d8b661b0b330" +
		"2ee2f162b09e07a55ad5dfbe673a9f01d9f0c19617681024306b56ae00000000"

	bip143NoFindAndDeleteTxHex = "0100000000010169c12106097dc2e0526493ef67f21269fe888ef05c7a3a5dac" +
		"ab38e1ac8387f14c1d000000ffffffff01010000000000000000034830450220" +
		"487fb382c4974de3f7d834c1b617fe15860828c7f96454490edd6d891556dcc9" +
		"022100baf95feb48f845d5bfc9882eb6aeefa1bc3790e39f59eaa46ff7f15ae6" +
		"26c53e012102a9781d66b61fb5a7ef00ac5ad5bc6ffc78be7b44a566e3c87870" +
		"e1079368df4c4aad4830450220487fb382c4974de3f7d834c1b617fe15860828" +
		"c7f96454490edd6d891556dcc9022100baf95feb48f845d5bfc9882eb6aeefa1" +
		"bc3790e39f59eaa46ff7f15ae626c53e0100000000"
)

// spentOutput is an output spent by an input of a test vector.
type spentOutput struct {
	pkScript string
	value    int64
}

// vectorTx decodes a test vector transaction and populates the prevouts of
// the inputs found in spent.
func vectorTx(t *testing.T, txHex string, spent map[int]spentOutput) *wire.MsgTx {
	t.Helper()

	tx := decodeTx(t, txHex)
	for idx, out := range spent {
		require.Less(t, idx, len(tx.TxIn))
		tx.TxIn[idx].Prevout = &wire.Prevout{
			TxOut: wire.TxOut{
				Value:    out.value,
				PkScript: hexToBytes(out.pkScript),
			},
		}
	}
	return tx
}

const segwitFlags = ScriptBip16 | ScriptVerifyWitness

var (
	bip143P2WPKHSpent = map[int]spentOutput{
		0: {"2103c9f4836b9a4f77fc0d81f7bcb01b7f1b35916864b9476c241ce9fc" +
			"198bd25432ac", 625000000},
		1: {"00141d0f172a0ecb48aee1be1f2687d2963ae33f71a1", 600000000},
	}
	bip143P2SHP2WPKHSpent = map[int]spentOutput{
		0: {"a9144733f37cf4db86fbc2efed2500b4f4e49f31202387", 1000000000},
	}
	bip143P2WSH2Spent = map[int]spentOutput{
		0: {"0020ba468eea561b26301e4cf69fa34bde4ad60c81e70f059f045ca9a7" +
			"9931004a4d", 16777215},
		1: {"0020d9bbfbe56af7c4b7f960a70d7ea107156913d9e5a26b0a71429df5" +
			"e097ca6537", 16777215},
	}
	testnet23428Spent = map[int]spentOutput{
		1: {"a9144aba54e2541475f91659ccdbb13ce0b490778c7f87", 100000000},
	}
)

// TestConnectVectors ensures real transactions validate under the rules
// they were mined with.
func TestConnectVectors(t *testing.T) {
	t.Parallel()

	const blockFlags = ScriptBip16 | ScriptVerifyDERSignatures |
		ScriptVerifyCheckLockTimeVerify | ScriptVerifyCheckSequenceVerify |
		ScriptVerifyWitness | ScriptStrictMultiSig

	tests := []struct {
		name  string
		txHex string
		spent map[int]spentOutput
		idx   int
		flags ScriptFlags
		err   ErrorCode
	}{
		{
			name:  "testnet 23428 p2sh multisig",
			txHex: testnet23428TxHex,
			spent: testnet23428Spent,
			idx:   1,
			flags: ScriptBip16 | ScriptVerifyCheckLockTimeVerify,
			err:   noError,
		},
		{
			name:  "block 290329 signature in redeem script",
			txHex: block290329TxHex,
			spent: map[int]spentOutput{
				1: {"a914d8dacdadb7462ae15cd906f1878706d0da8660e687", 0},
			},
			idx:   1,
			flags: ScriptBip16 | ScriptVerifyCheckLockTimeVerify,
			err:   noError,
		},
		{
			name:  "block 438513 without p2sh",
			txHex: block438513TxHex,
			spent: map[int]spentOutput{
				0: {"a914faa558780a5767f9e3be14992a578fc1cbcf483087", 0},
			},
			idx:   0,
			flags: ScriptVerifyDERSignatures,
			err:   noError,
		},
		{
			name:  "block 481824 p2sh p2wpkh",
			txHex: block481824TxHex,
			spent: map[int]spentOutput{
				0: {"a9142928f43af18d2d60e8a843540d8086b30534133987",
					100200000},
			},
			idx:   0,
			flags: blockFlags,
			err:   noError,
		},
		{
			name:  "testnet 892321 p2wsh without witness",
			txHex: testnet892321TxHex,
			spent: map[int]spentOutput{
				0: {"0020925fe0a6cde95bdc7a21b08925c246cae17005f8a013ef" +
					"ffdb5e5cb7b7f8d0c2", 194445},
			},
			idx:   0,
			flags: blockFlags,
			err:   ErrWitnessProgramEmpty,
		},
		{
			name:  "bip143 p2pk without rules",
			txHex: bip143P2WPKHTxHex,
			spent: bip143P2WPKHSpent,
			idx:   0,
			flags: 0,
			err:   noError,
		},
		{
			name:  "bip143 p2pk with segwit rules",
			txHex: bip143P2WPKHTxHex,
			spent: bip143P2WPKHSpent,
			idx:   0,
			flags: segwitFlags,
			err:   noError,
		},
		{
			name:  "bip143 native p2wpkh",
			txHex: bip143P2WPKHTxHex,
			spent: bip143P2WPKHSpent,
			idx:   1,
			flags: segwitFlags,
			err:   noError,
		},
		{
			name:  "bip143 native p2wpkh before segwit",
			txHex: bip143P2WPKHTxHex,
			spent: bip143P2WPKHSpent,
			idx:   1,
			flags: 0,
			err:   noError,
		},
		{
			name:  "bip143 p2sh p2wpkh",
			txHex: bip143P2SHP2WPKHTxHex,
			spent: bip143P2SHP2WPKHSpent,
			idx:   0,
			flags: segwitFlags,
			err:   noError,
		},
		{
			name:  "bip143 p2sh p2wpkh before segwit",
			txHex: bip143P2SHP2WPKHTxHex,
			spent: bip143P2SHP2WPKHSpent,
			idx:   0,
			flags: ScriptBip16,
			err:   noError,
		},
		{
			name:  "witness without p2sh",
			txHex: bip143P2SHP2WPKHTxHex,
			spent: bip143P2SHP2WPKHSpent,
			idx:   0,
			flags: ScriptVerifyWitness,
			err:   ErrInvalidFlags,
		},
		{
			name:  "bip143 p2pk with code separators",
			txHex: bip143P2WSH1TxHex,
			spent: map[int]spentOutput{
				0: {"21036d5c20fa14fb2f635474c1dc4ef5909d4568e5569b79fc" +
					"94d3448486e14685f8ac", 156250000},
			},
			idx:   0,
			flags: 0,
			err:   noError,
		},
		{
			name:  "bip143 native p2wsh with code separators",
			txHex: bip143P2WSH1TxHex,
			spent: map[int]spentOutput{
				1: {"00205d1b56b63d714eebe542309525f484b7e9d6f686b3781b" +
					"6f61ef925d66d6f6a0", 4900000000},
			},
			idx:   1,
			flags: segwitFlags,
			err:   noError,
		},
		{
			name:  "bip143 native p2wsh single anyonecanpay 0",
			txHex: bip143P2WSH2TxHex,
			spent: bip143P2WSH2Spent,
			idx:   0,
			flags: segwitFlags,
			err:   noError,
		},
		{
			name:  "bip143 native p2wsh single anyonecanpay 1",
			txHex: bip143P2WSH2TxHex,
			spent: bip143P2WSH2Spent,
			idx:   1,
			flags: segwitFlags,
			err:   noError,
		},
		{
			name:  "bip143 native p2wsh swapped inputs 0",
			txHex: bip143P2WSH3TxHex,
			spent: map[int]spentOutput{
				0: bip143P2WSH2Spent[1],
			},
			idx:   0,
			flags: segwitFlags,
			err:   noError,
		},
		{
			name:  "bip143 native p2wsh swapped inputs 1",
			txHex: bip143P2WSH3TxHex,
			spent: map[int]spentOutput{
				1: bip143P2WSH2Spent[0],
			},
			idx:   1,
			flags: segwitFlags,
			err:   noError,
		},
		{
			name:  "bip143 p2sh p2wsh 6-of-6 multisig",
			txHex: bip143P2SHP2WSHTxHex,
			spent: map[int]spentOutput{
				0: {"a9149993a429037b5d912407a71c252019287b8d27a587",
					987654321},
			},
			idx:   0,
			flags: segwitFlags,
			err:   noError,
		},
		{
			name:  "bip143 p2wsh signature kept in witness script",
			txHex: bip143NoFindAndDeleteTxHex,
			spent: map[int]spentOutput{
				0: {"00209e1be07558ea5cc8e02ed1d80c0911048afad949affa36" +
					"d5c3951e3159dbea19", 200000},
			},
			idx:   0,
			flags: segwitFlags | ScriptStrictMultiSig,
			err:   noError,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			tx := vectorTx(t, test.txHex, test.spent)
			err := Connect(test.flags, nil, tx, test.idx)
			requireErrorCode(t, err, test.err)
		})
	}
}

// TestConnectMutations ensures altering any committed part of a valid spend
// makes it fail with the expected error.
func TestConnectMutations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		txHex  string
		spent  map[int]spentOutput
		idx    int
		flags  ScriptFlags
		mutate func(tx *wire.MsgTx)
		err    ErrorCode
	}{
		{
			name:  "p2sh redeem script altered",
			txHex: testnet23428TxHex,
			spent: testnet23428Spent,
			idx:   1,
			flags: ScriptBip16,
			mutate: func(tx *wire.MsgTx) {
				sigScript := tx.TxIn[1].SignatureScript
				sigScript[len(sigScript)-1] ^= 0x01
			},
			err: ErrEvalFalse,
		},
		{
			name:  "p2sh input script not push only",
			txHex: testnet23428TxHex,
			spent: testnet23428Spent,
			idx:   1,
			flags: ScriptBip16,
			mutate: func(tx *wire.MsgTx) {
				tx.TxIn[1].SignatureScript = append(
					tx.TxIn[1].SignatureScript, OP_NOP)
			},
			err: ErrNotPushOnly,
		},
		{
			name:  "input script not push only",
			txHex: bip143P2WPKHTxHex,
			spent: bip143P2WPKHSpent,
			idx:   0,
			flags: ScriptVerifySigPushOnly,
			mutate: func(tx *wire.MsgTx) {
				tx.TxIn[0].SignatureScript = append(
					tx.TxIn[0].SignatureScript, OP_NOP)
			},
			err: ErrNotPushOnly,
		},
		{
			name:  "native witness program with input script",
			txHex: bip143P2WPKHTxHex,
			spent: bip143P2WPKHSpent,
			idx:   1,
			flags: segwitFlags,
			mutate: func(tx *wire.MsgTx) {
				tx.TxIn[1].SignatureScript = []byte{OP_1}
			},
			err: ErrWitnessMalleated,
		},
		{
			name:  "non-canonical nested witness program push",
			txHex: bip143P2SHP2WPKHTxHex,
			spent: bip143P2SHP2WPKHSpent,
			idx:   0,
			flags: segwitFlags,
			mutate: func(tx *wire.MsgTx) {
				pushes, err := PushedData(tx.TxIn[0].SignatureScript)
				if err != nil || len(pushes) == 0 {
					panic("unexpected signature script")
				}
				redeem := pushes[len(pushes)-1]
				sigScript := []byte{OP_PUSHDATA1, byte(len(redeem))}
				tx.TxIn[0].SignatureScript = append(sigScript,
					redeem...)
			},
			err: ErrWitnessMalleatedP2SH,
		},
		{
			name:  "witness on non-witness input",
			txHex: bip143P2WPKHTxHex,
			spent: bip143P2WPKHSpent,
			idx:   0,
			flags: segwitFlags,
			mutate: func(tx *wire.MsgTx) {
				tx.TxIn[0].Witness = wire.TxWitness{{0x01}}
			},
			err: ErrWitnessUnexpected,
		},
		{
			name:  "p2wpkh amount",
			txHex: bip143P2WPKHTxHex,
			spent: bip143P2WPKHSpent,
			idx:   1,
			flags: segwitFlags,
			mutate: func(tx *wire.MsgTx) {
				tx.TxIn[1].Prevout.Value++
			},
			err: ErrEvalFalse,
		},
		{
			name:  "p2wpkh signature",
			txHex: bip143P2WPKHTxHex,
			spent: bip143P2WPKHSpent,
			idx:   1,
			flags: segwitFlags,
			mutate: func(tx *wire.MsgTx) {
				tx.TxIn[1].Witness[0][10] ^= 0x01
			},
			err: ErrEvalFalse,
		},
		{
			name:  "p2wpkh signature nullfail",
			txHex: bip143P2WPKHTxHex,
			spent: bip143P2WPKHSpent,
			idx:   1,
			flags: segwitFlags | ScriptVerifyNullFail,
			mutate: func(tx *wire.MsgTx) {
				tx.TxIn[1].Witness[0][10] ^= 0x01
			},
			err: ErrNullFail,
		},
		{
			name:  "p2wpkh extra witness item",
			txHex: bip143P2WPKHTxHex,
			spent: bip143P2WPKHSpent,
			idx:   1,
			flags: segwitFlags,
			mutate: func(tx *wire.MsgTx) {
				tx.TxIn[1].Witness = append(tx.TxIn[1].Witness, nil)
			},
			err: ErrWitnessProgramMismatch,
		},
		{
			name:  "p2wsh witness script",
			txHex: bip143P2WSH2TxHex,
			spent: bip143P2WSH2Spent,
			idx:   0,
			flags: segwitFlags,
			mutate: func(tx *wire.MsgTx) {
				witness := tx.TxIn[0].Witness
				witness[len(witness)-1] = append(
					witness[len(witness)-1], OP_NOP)
			},
			err: ErrWitnessProgramMismatch,
		},
		{
			name:  "p2wsh other output value",
			txHex: bip143P2WSH2TxHex,
			spent: bip143P2WSH2Spent,
			idx:   0,
			flags: segwitFlags,
			mutate: func(tx *wire.MsgTx) {
				tx.TxOut[0].Value++
			},
			err: ErrEvalFalse,
		},
		{
			name:  "missing prevout",
			txHex: bip143P2WPKHTxHex,
			spent: bip143P2WPKHSpent,
			idx:   1,
			flags: segwitFlags,
			mutate: func(tx *wire.MsgTx) {
				tx.TxIn[1].Prevout = nil
			},
			err: ErrMissingPrevOut,
		},
		{
			name:   "input index out of range",
			txHex:  bip143P2WPKHTxHex,
			spent:  bip143P2WPKHSpent,
			idx:    2,
			flags:  segwitFlags,
			mutate: func(tx *wire.MsgTx) {},
			err:    ErrInvalidIndex,
		},
		{
			name:   "clean stack without witness",
			txHex:  bip143P2WPKHTxHex,
			spent:  bip143P2WPKHSpent,
			idx:    1,
			flags:  ScriptBip16 | ScriptVerifyCleanStack,
			mutate: func(tx *wire.MsgTx) {},
			err:    ErrInvalidFlags,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			tx := vectorTx(t, test.txHex, test.spent)
			test.mutate(tx)
			err := Connect(test.flags, &HeightContext{Height: 1},
				tx, test.idx)
			requireErrorCode(t, err, test.err)
		})
	}
}

// TestConnectGeneratedSpends ensures spends created by the signing helpers
// validate under the standard rules.
func TestConnectGeneratedSpends(t *testing.T) {
	t.Parallel()

	key := testKey(0x21)
	pubKey := key.PubKey().SerializeCompressed()
	pubKeyHash := btcutil.Hash160(pubKey)

	t.Run("p2pkh", func(t *testing.T) {
		pkScript, err := PayToPubKeyHashScript(pubKeyHash)
		require.NoError(t, err)

		tx := newSpendTx(nil, nil, pkScript, 50000)
		sigScript, err := SignatureScript(tx, 0, pkScript, SigHashAll,
			key, true)
		require.NoError(t, err)
		tx.TxIn[0].SignatureScript = sigScript

		require.NoError(t, Connect(StandardVerifyFlags, nil, tx, 0))

		// Signing the uncompressed key does not match the hash.
		sigScript, err = SignatureScript(tx, 0, pkScript, SigHashAll,
			key, false)
		require.NoError(t, err)
		tx.TxIn[0].SignatureScript = sigScript
		err = Connect(StandardVerifyFlags, nil, tx, 0)
		requireErrorCode(t, err, ErrEqualVerify)
	})

	t.Run("p2wpkh", func(t *testing.T) {
		pkScript, err := PayToWitnessPubKeyHashScript(pubKeyHash)
		require.NoError(t, err)

		tx := newSpendTx(nil, nil, pkScript, 50000)
		sigHashes := NewTxSigHashes(tx, NewTxPrevOutFetcher(tx))
		witness, err := WitnessSignature(tx, sigHashes, 0, 50000,
			p2wpkhScript(pubKeyHash), SigHashAll, key, true)
		require.NoError(t, err)
		tx.TxIn[0].Witness = witness

		sigCache := NewSigCache(10)
		err = Connect(StandardVerifyFlags, nil, tx, 0,
			WithConnectSigCache(sigCache),
			WithConnectTxSigHashes(sigHashes))
		require.NoError(t, err)

		// The verified signature is found in the cache the second time.
		err = Connect(StandardVerifyFlags, nil, tx, 0,
			WithConnectSigCache(sigCache))
		require.NoError(t, err)

		// Uncompressed keys are not standard in witness programs.
		uncompressed := key.PubKey().SerializeUncompressed()
		pkScript, err = PayToWitnessPubKeyHashScript(
			btcutil.Hash160(uncompressed))
		require.NoError(t, err)
		tx = newSpendTx(nil, nil, pkScript, 50000)
		sigHashes = NewTxSigHashes(tx, NewTxPrevOutFetcher(tx))
		witness, err = WitnessSignature(tx, sigHashes, 0, 50000,
			p2wpkhScript(btcutil.Hash160(uncompressed)), SigHashAll,
			key, false)
		require.NoError(t, err)
		tx.TxIn[0].Witness = witness

		err = Connect(StandardVerifyFlags, nil, tx, 0)
		requireErrorCode(t, err, ErrWitnessPubKeyType)
		require.NoError(t, Connect(segwitFlags, nil, tx, 0))
	})

	t.Run("p2wsh", func(t *testing.T) {
		witnessScript, err := MultiSigScript([][]byte{pubKey}, 1)
		require.NoError(t, err)
		scriptHash := sha256.Sum256(witnessScript)
		pkScript, err := PayToWitnessScriptHashScript(scriptHash[:])
		require.NoError(t, err)

		tx := newSpendTx(nil, nil, pkScript, 50000)
		sigHashes := NewTxSigHashes(tx, NewTxPrevOutFetcher(tx))
		sig, err := RawTxInWitnessSignature(tx, sigHashes, 0, 50000,
			witnessScript, SigHashAll, key)
		require.NoError(t, err)

		tx.TxIn[0].Witness = wire.TxWitness{nil, sig, witnessScript}
		require.NoError(t, Connect(StandardVerifyFlags, nil, tx, 0))

		// An extra item left on the stack breaks the clean stack rule.
		tx.TxIn[0].Witness = wire.TxWitness{{0x01}, nil, sig,
			witnessScript}
		err = Connect(StandardVerifyFlags, nil, tx, 0)
		requireErrorCode(t, err, ErrCleanStack)
	})

	t.Run("p2sh", func(t *testing.T) {
		redeemScript, err := MultiSigScript([][]byte{pubKey}, 1)
		require.NoError(t, err)
		pkScript, err := PayToScriptHashScript(
			btcutil.Hash160(redeemScript))
		require.NoError(t, err)

		tx := newSpendTx(nil, nil, pkScript, 50000)
		sig, err := RawTxInSignature(tx, 0, redeemScript, SigHashAll, key)
		require.NoError(t, err)
		sigScript, err := NewScriptBuilder().AddOp(OP_0).AddData(sig).
			AddData(redeemScript).Script()
		require.NoError(t, err)
		tx.TxIn[0].SignatureScript = sigScript

		require.NoError(t, Connect(StandardVerifyFlags, nil, tx, 0))

		// A non-empty dummy is rejected.
		sigScript, err = NewScriptBuilder().AddOp(OP_1).AddData(sig).
			AddData(redeemScript).Script()
		require.NoError(t, err)
		tx.TxIn[0].SignatureScript = sigScript
		err = Connect(StandardVerifyFlags, nil, tx, 0)
		requireErrorCode(t, err, ErrSigNullDummy)
	})
}

// taprootFixture is a taproot output committing to a tree of leaves along
// with a transaction spending it.
type taprootFixture struct {
	internalKey *btcec.PrivateKey
	leafKey     *btcec.PrivateKey
	leaves      []TapLeaf
	proofs      []TapscriptProof
	tx          *wire.MsgTx
	sigHashes   *TxSigHashes
	fetcher     PrevOutputFetcher
	rootHash    []byte
}

func newTaprootFixture(t *testing.T, leafScripts ...[]byte) *taprootFixture {
	t.Helper()

	f := &taprootFixture{
		internalKey: testKey(0x31),
		leafKey:     testKey(0x32),
	}

	outputKey := ComputeTaprootKeyNoScript(f.internalKey.PubKey())
	if len(leafScripts) != 0 {
		for _, script := range leafScripts {
			f.leaves = append(f.leaves, NewBaseTapLeaf(script))
		}
		var root TapNode
		root, f.proofs = AssembleTaprootScriptTree(f.leaves...)
		rootHash := root.TapHash()
		f.rootHash = rootHash[:]
		outputKey = ComputeTaprootOutputKey(f.internalKey.PubKey(),
			f.rootHash)
	}

	pkScript, err := PayToTaprootScript(outputKey)
	require.NoError(t, err)

	f.tx = newSpendTx(nil, nil, pkScript, 50000)
	f.fetcher = NewTxPrevOutFetcher(f.tx)
	f.sigHashes = NewTxSigHashes(f.tx, f.fetcher)
	return f
}

// controlBlock returns the serialized control block of leaf idx.
func (f *taprootFixture) controlBlock(t *testing.T, idx int) []byte {
	t.Helper()

	ctrl := f.proofs[idx].ToControlBlock(f.internalKey.PubKey())
	ctrlBytes, err := ctrl.ToBytes()
	require.NoError(t, err)
	return ctrlBytes
}

// TestConnectTaprootKeySpend ensures key path spends validate and that the
// signature commits to the hash type.
func TestConnectTaprootKeySpend(t *testing.T) {
	t.Parallel()

	const taprootFlags = segwitFlags | ScriptVerifyTaproot

	f := newTaprootFixture(t)
	sig, err := RawTxInTaprootSignature(f.tx, f.sigHashes, 0, f.fetcher,
		nil, SigHashDefault, f.internalKey)
	require.NoError(t, err)
	require.Len(t, sig, schnorr.SignatureSize)

	sigAll, err := RawTxInTaprootSignature(f.tx, f.sigHashes, 0, f.fetcher,
		nil, SigHashAll, f.internalKey)
	require.NoError(t, err)
	require.Len(t, sigAll, schnorr.SignatureSize+1)

	flipped := append([]byte(nil), sig...)
	flipped[0] ^= 0x01

	explicitDefault := append(append([]byte(nil), sig...),
		byte(SigHashDefault))

	// A SigHashAll signature relabeled as SigHashNone fails.
	relabeled := append([]byte(nil), sigAll...)
	relabeled[schnorr.SignatureSize] = byte(SigHashNone)

	tests := []struct {
		name    string
		witness wire.TxWitness
		flags   ScriptFlags
		err     ErrorCode
	}{
		{"default hash type", wire.TxWitness{sig}, StandardVerifyFlags,
			noError},
		{"explicit hash type", wire.TxWitness{sigAll},
			StandardVerifyFlags, noError},
		{"bad signature", wire.TxWitness{flipped}, taprootFlags,
			ErrTaprootSigInvalid},
		{"bad signature before taproot", wire.TxWitness{flipped},
			segwitFlags, noError},
		{"explicit default hash type", wire.TxWitness{explicitDefault},
			taprootFlags, ErrInvalidSigHashType},
		{"short signature", wire.TxWitness{sig[:63]}, taprootFlags,
			ErrInvalidTaprootSigLen},
		{"relabeled hash type", wire.TxWitness{relabeled}, taprootFlags,
			ErrTaprootSigInvalid},
		{"empty witness", nil, taprootFlags, ErrWitnessProgramEmpty},
		{"annex not signed", wire.TxWitness{sig, {TaprootAnnexTag}},
			taprootFlags, ErrTaprootSigInvalid},
	}

	for _, test := range tests {
		tx := f.tx.Copy()
		tx.TxIn[0].Witness = test.witness
		err := Connect(test.flags, nil, tx, 0)
		requireErrorCode(t, err, test.err)
	}

	// Taproot signatures commit to every spent output, so each one must be
	// known.
	tx := f.tx.Copy()
	tx.TxIn[0].Witness = wire.TxWitness{sig}
	otherHash := tx.TxIn[0].PreviousOutPoint.Hash
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&otherHash, 1), nil, nil))
	err = Connect(taprootFlags, nil, tx, 0)
	requireErrorCode(t, err, ErrMissingPrevOut)
}

// TestConnectTapscript ensures script path spends validate against the
// committed leaf.
func TestConnectTapscript(t *testing.T) {
	t.Parallel()

	const taprootFlags = segwitFlags | ScriptVerifyTaproot

	leafKey := schnorr.SerializePubKey(testKey(0x32).PubKey())
	checkSigLeaf, err := NewScriptBuilder().AddData(leafKey).
		AddOp(OP_CHECKSIG).Script()
	require.NoError(t, err)
	checkSigAddLeaf, err := NewScriptBuilder().AddOp(OP_0).AddData(leafKey).
		AddOp(OP_CHECKSIGADD).AddOp(OP_1).AddOp(OP_NUMEQUAL).Script()
	require.NoError(t, err)
	successLeaf := []byte{OP_RESERVED}
	multisigLeaf := []byte{OP_0, OP_0, OP_0, OP_CHECKMULTISIG}
	minimalIfLeaf := []byte{OP_IF, OP_1, OP_ENDIF}

	f := newTaprootFixture(t, checkSigLeaf, checkSigAddLeaf, successLeaf,
		multisigLeaf, minimalIfLeaf)

	sign := func(leaf int, opts ...TaprootSigHashOption) []byte {
		sig, err := RawTxInTapscriptSignature(f.tx, f.sigHashes, 0,
			f.fetcher, f.leaves[leaf], SigHashDefault, f.leafKey,
			opts...)
		require.NoError(t, err)
		return sig
	}

	annex := []byte{TaprootAnnexTag, 0x01, 0x02}
	checkSig := sign(0)
	checkSigAdd := sign(1)
	checkSigAnnex := sign(0, WithAnnex(annex))
	wrongLeaf := sign(1)

	tests := []struct {
		name    string
		witness wire.TxWitness
		flags   ScriptFlags
		err     ErrorCode
	}{
		{
			name: "checksig",
			witness: wire.TxWitness{checkSig, checkSigLeaf,
				f.controlBlock(t, 0)},
			flags: StandardVerifyFlags,
			err:   noError,
		},
		{
			name: "checksigadd",
			witness: wire.TxWitness{checkSigAdd, checkSigAddLeaf,
				f.controlBlock(t, 1)},
			flags: StandardVerifyFlags,
			err:   noError,
		},
		{
			name: "annex",
			witness: wire.TxWitness{checkSigAnnex, checkSigLeaf,
				f.controlBlock(t, 0), annex},
			flags: StandardVerifyFlags,
			err:   noError,
		},
		{
			name: "annex not signed",
			witness: wire.TxWitness{checkSig, checkSigLeaf,
				f.controlBlock(t, 0), annex},
			flags: taprootFlags,
			err:   ErrTaprootSigInvalid,
		},
		{
			name: "signature for another leaf",
			witness: wire.TxWitness{wrongLeaf, checkSigLeaf,
				f.controlBlock(t, 0)},
			flags: taprootFlags,
			err:   ErrTaprootSigInvalid,
		},
		{
			name: "empty signature",
			witness: wire.TxWitness{nil, checkSigLeaf,
				f.controlBlock(t, 0)},
			flags: taprootFlags,
			err:   ErrEvalFalse,
		},
		{
			name: "leaf not committed",
			witness: wire.TxWitness{checkSig, checkSigAddLeaf,
				f.controlBlock(t, 0)},
			flags: taprootFlags,
			err:   ErrTaprootMerkleProofInvalid,
		},
		{
			name: "truncated control block",
			witness: wire.TxWitness{checkSig, checkSigLeaf,
				f.controlBlock(t, 0)[:32]},
			flags: taprootFlags,
			err:   ErrControlBlockTooSmall,
		},
		{
			name:    "op success",
			witness: wire.TxWitness{successLeaf, f.controlBlock(t, 2)},
			flags:   taprootFlags,
			err:     noError,
		},
		{
			name:    "op success discouraged",
			witness: wire.TxWitness{successLeaf, f.controlBlock(t, 2)},
			flags:   StandardVerifyFlags,
			err:     ErrDiscourageOpSuccess,
		},
		{
			name: "checkmultisig",
			witness: wire.TxWitness{multisigLeaf,
				f.controlBlock(t, 3)},
			flags: taprootFlags,
			err:   ErrTapscriptCheckMultisig,
		},
		{
			name: "minimal if",
			witness: wire.TxWitness{{0x01}, minimalIfLeaf,
				f.controlBlock(t, 4)},
			flags: taprootFlags,
			err:   noError,
		},
		{
			name: "non-minimal if",
			witness: wire.TxWitness{{0x02}, minimalIfLeaf,
				f.controlBlock(t, 4)},
			flags: taprootFlags,
			err:   ErrMinimalIf,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			tx := f.tx.Copy()
			tx.TxIn[0].Witness = test.witness
			err := Connect(test.flags, nil, tx, 0)
			requireErrorCode(t, err, test.err)
		})
	}
}

// TestUpgradableWitnessProgram ensures unknown witness programs, including
// version 1 programs while taproot is inactive or wrapped in P2SH, succeed
// unless the upgradable witness program policy is requested.
func TestUpgradableWitnessProgram(t *testing.T) {
	t.Parallel()

	program32 := make([]byte, witnessV1TaprootLen)
	tests := []struct {
		name    string
		version int
		program []byte
		isP2SH  bool
		flags   ScriptFlags
		err     ErrorCode
	}{{
		name:    "v1 taproot inactive",
		version: TaprootWitnessVersion,
		program: program32,
		flags:   ScriptVerifyWitness,
		err:     noError,
	}, {
		name:    "v1 taproot inactive discouraged",
		version: TaprootWitnessVersion,
		program: program32,
		flags: ScriptVerifyWitness |
			ScriptVerifyDiscourageUpgradeableWitnessProgram,
		err: ErrDiscourageUpgradableWitnessProgram,
	}, {
		name:    "v1 wrapped in p2sh",
		version: TaprootWitnessVersion,
		program: program32,
		isP2SH:  true,
		flags:   ScriptVerifyWitness | ScriptVerifyTaproot,
		err:     noError,
	}, {
		name:    "v16 discouraged",
		version: 16,
		program: []byte{0x01, 0x02},
		flags: ScriptVerifyWitness | ScriptVerifyTaproot |
			ScriptVerifyDiscourageUpgradeableWitnessProgram,
		err: ErrDiscourageUpgradableWitnessProgram,
	}}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			spend, err := extractScriptAndStack(nil, test.version,
				test.program, test.isP2SH, test.flags)
			requireErrorCode(t, err, test.err)
			if test.err == noError {
				require.True(t, spend.unconditional)
			}
		})
	}
}
