package gate

// Entry stubs for each interrupt vector, implemented in gate_amd64.s. They are
// only referenced by address through fillGateEntries and are never called from Go.

func gate0()
func gate1()
func gate2()
func gate3()
func gate4()
func gate5()
func gate6()
func gate7()
func gate8()
func gate9()
func gate10()
func gate11()
func gate12()
func gate13()
func gate14()
func gate15()
func gate16()
func gate17()
func gate18()
func gate19()
func gate20()
func gate21()
func gate22()
func gate23()
func gate24()
func gate25()
func gate26()
func gate27()
func gate28()
func gate29()
func gate30()
func gate31()
func gate32()
func gate33()
func gate34()
func gate35()
func gate36()
func gate37()
func gate38()
func gate39()
func gate40()
func gate41()
func gate42()
func gate43()
func gate44()
func gate45()
func gate46()
func gate47()
func gate48()
func gate49()
func gate50()
func gate51()
func gate52()
func gate53()
func gate54()
func gate55()
func gate56()
func gate57()
func gate58()
func gate59()
func gate60()
func gate61()
func gate62()
func gate63()
func gate64()
func gate65()
func gate66()
func gate67()
func gate68()
func gate69()
func gate70()
func gate71()
func gate72()
func gate73()
func gate74()
func gate75()
func gate76()
func gate77()
func gate78()
func gate79()
func gate80()
func gate81()
func gate82()
func gate83()
func gate84()
func gate85()
func gate86()
func gate87()
func gate88()
func gate89()
func gate90()
func gate91()
func gate92()
func gate93()
func gate94()
func gate95()
func gate96()
func gate97()
func gate98()
func gate99()
func gate100()
func gate101()
func gate102()
func gate103()
func gate104()
func gate105()
func gate106()
func gate107()
func gate108()
func gate109()
func gate110()
func gate111()
func gate112()
func gate113()
func gate114()
func gate115()
func gate116()
func gate117()
func gate118()
func gate119()
func gate120()
func gate121()
func gate122()
func gate123()
func gate124()
func gate125()
func gate126()
func gate127()
func gate128()
func gate129()
func gate130()
func gate131()
func gate132()
func gate133()
func gate134()
func gate135()
func gate136()
func gate137()
func gate138()
func gate139()
func gate140()
func gate141()
func gate142()
func gate143()
func gate144()
func gate145()
func gate146()
func gate147()
func gate148()
func gate149()
func gate150()
func gate151()
func gate152()
func gate153()
func gate154()
func gate155()
func gate156()
func gate157()
func gate158()
func gate159()
func gate160()
func gate161()
func gate162()
func gate163()
func gate164()
func gate165()
func gate166()
func gate167()
func gate168()
func gate169()
func gate170()
func gate171()
func gate172()
func gate173()
func gate174()
func gate175()
func gate176()
func gate177()
func gate178()
func gate179()
func gate180()
func gate181()
func gate182()
func gate183()
func gate184()
func gate185()
func gate186()
func gate187()
func gate188()
func gate189()
func gate190()
func gate191()
func gate192()
func gate193()
func gate194()
func gate195()
func gate196()
func gate197()
func gate198()
func gate199()
func gate200()
func gate201()
func gate202()
func gate203()
func gate204()
func gate205()
func gate206()
func gate207()
func gate208()
func gate209()
func gate210()
func gate211()
func gate212()
func gate213()
func gate214()
func gate215()
func gate216()
func gate217()
func gate218()
func gate219()
func gate220()
func gate221()
func gate222()
func gate223()
func gate224()
func gate225()
func gate226()
func gate227()
func gate228()
func gate229()
func gate230()
func gate231()
func gate232()
func gate233()
func gate234()
func gate235()
func gate236()
func gate237()
func gate238()
func gate239()
func gate240()
func gate241()
func gate242()
func gate243()
func gate244()
func gate245()
func gate246()
func gate247()
func gate248()
func gate249()
func gate250()
func gate251()
func gate252()
func gate253()
func gate254()
func gate255()
