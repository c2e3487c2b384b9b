package session

// ExtractionPrompt instructs the model to answer with exactly nine
// comma-separated values in a fixed order. This is the whole wire contract of
// the response: there is no schema, only this text. Wording changes here must
// be coordinated with the positional parser.
const ExtractionPrompt = `Extrae estos datos del PDF y responde SOLO con los valores separados por comas en este orden exacto:

Moneda,RUC,Proveedor,Codigo Factura,Fecha Emision,Forma Pago,IGV,Sub Total,Total

REGLAS:
- Moneda: SOLES o DOLARES
- RUC: solo numeros sin guiones del PROVEEDOR (NO de Nettalco/cliente que recibe). Si solo ves RUC 20100064571 pon null
- Proveedor: nombre completo empresa proveedora
- Codigo Factura: formato exacto
- Fecha Emision: formato DD/MM/YYYY
- Forma Pago: Contado o Credito
- IGV: True si incluye IGV o False si no incluye
- Sub Total: numero con punto decimal (monto sin IGV)
- Total: numero con punto decimal (si IGV es False entonces Total = Sub Total)
- Si no existe: null

EJEMPLO 1: SOLES,20190143806,MECANICA INDUSTRIAL LIRA S.A.C.,FACTURA 7 DIAS,10/01/2026,Credito,True,120.00,141.60
EJEMPLO 2: DOLARES,null,EMPRESA XYZ S.A.C.,F001-001,11/01/2026,Contado,False,500.00,500.00`
